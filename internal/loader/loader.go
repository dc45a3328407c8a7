// Package loader reads lecture files into page-located documents.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"ragchitchat/internal/domain"
	"ragchitchat/internal/logger"
)

// Extensions lists the supported file types.
var Extensions = []string{".pdf", ".txt", ".md"}

// Supported reports whether path has a loadable extension.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Discover returns the supported files under root in lexical order.
func Discover(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if Supported(path) {
			files = append(files, path)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// LoadFile reads one file. The document id is its slash-separated path
// relative to root.
func LoadFile(root, path string) (domain.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.Document{}, err
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	rel = filepath.ToSlash(rel)
	doc := domain.Document{
		ID:      rel,
		Path:    path,
		Source:  rel,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		doc.Pages, err = readPDF(path)
	case ".txt", ".md":
		doc.Pages, err = readText(path)
	default:
		err = fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
	if err != nil {
		return domain.Document{}, fmt.Errorf("load %s: %w", rel, err)
	}
	return doc, nil
}

// Load reads every supported file under root. Files that fail to load are
// logged and skipped.
func Load(ctx context.Context, root string) ([]domain.Document, error) {
	log := logger.FromContext(ctx)
	paths, err := Discover(root)
	if err != nil {
		return nil, err
	}
	docs := make([]domain.Document, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := LoadFile(root, p)
		if err != nil {
			log.Warn("skipping document", "path", p, "error", err)
			continue
		}
		log.Debug("loaded document", "source", doc.Source, "pages", len(doc.Pages))
		docs = append(docs, doc)
	}
	return docs, nil
}

func readText(path string) ([]domain.Page, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return []domain.Page{{Number: 1, Text: string(b)}}, nil
}

func readPDF(path string) ([]domain.Page, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	pages := make([]domain.Page, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, domain.Page{Number: i, Text: text})
	}
	return pages, nil
}
