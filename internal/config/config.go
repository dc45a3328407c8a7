// Package config loads the application settings from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// OllamaConfig points at the completion server.
type OllamaConfig struct {
	URL         string  `yaml:"url"          validate:"required,url"`
	Model       string  `yaml:"model"        validate:"required"`
	TimeoutSecs int     `yaml:"timeout_secs" validate:"gte=0"`
	Temperature float64 `yaml:"temperature"  validate:"gte=0,lte=2"`
	MaxTokens   int     `yaml:"max_tokens"   validate:"gte=0"`
}

// Timeout bounds model listing requests.
func (c OllamaConfig) Timeout() time.Duration { return time.Duration(c.TimeoutSecs) * time.Second }

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type      string `yaml:"type"        validate:"oneof=tfidf ollama openai"`
	Model     string `yaml:"model"       validate:"required_unless=Type tfidf"`
	BaseURL   string `yaml:"base_url"    validate:"omitempty,url"`
	APIKeyEnv string `yaml:"api_key_env"`
	BatchSize int    `yaml:"batch_size"  validate:"gte=0"`
	CacheSize int    `yaml:"cache_size"  validate:"gte=0"`
}

// APIKey resolves the key from the configured environment variable.
func (c EmbedderConfig) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

// ChunkerConfig configures how documents are split into chunks. Size and
// Overlap are characters for "recursive" and sentences for "sentence".
type ChunkerConfig struct {
	Type    string `yaml:"type"    validate:"oneof=recursive sentence"`
	Size    int    `yaml:"size"    validate:"gt=0"`
	Overlap int    `yaml:"overlap" validate:"gte=0,ltfield=Size"`
}

// Settings identifies the chunking configuration in the catalog fingerprint.
func (c ChunkerConfig) Settings() string {
	return fmt.Sprintf("%s:%d:%d", c.Type, c.Size, c.Overlap)
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"             validate:"oneof=memory qdrant"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty" validate:"required_if=Type qdrant"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"          validate:"required,url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"   validate:"required"`
	TimeoutSecs int    `yaml:"timeout_secs" validate:"gte=0"`
}

// RetrievalConfig tunes hybrid retrieval.
type RetrievalConfig struct {
	TopK int `yaml:"top_k" validate:"gt=0"`
	// Candidates is how many hits each method contributes; 0 means 2 x TopK.
	Candidates    int     `yaml:"candidates"     validate:"omitempty,gtefield=TopK"`
	Fusion        string  `yaml:"fusion"         validate:"oneof=minmax rrf"`
	VectorWeight  float64 `yaml:"vector_weight"  validate:"gte=0"`
	LexicalWeight float64 `yaml:"lexical_weight" validate:"gte=0"`
	BM25K1        float64 `yaml:"bm25_k1"        validate:"gt=0"`
	BM25B         float64 `yaml:"bm25_b"         validate:"gte=0,lte=1"`
}

// CandidateCount resolves the per-method candidate count.
func (c RetrievalConfig) CandidateCount() int {
	if c.Candidates > 0 {
		return c.Candidates
	}
	return 2 * c.TopK
}

// PromptConfig configures prompt assembly.
type PromptConfig struct {
	SystemPrompt  string `yaml:"system_prompt,omitempty"`
	ContextBudget int    `yaml:"context_budget" validate:"gt=0"`
	HistoryTurns  int    `yaml:"history_turns"  validate:"gte=0"`
	TokenCounter  string `yaml:"token_counter"  validate:"oneof=estimate tiktoken"`
	FewShot       bool   `yaml:"few_shot"`
}

type SessionConfig struct {
	HistoryCapacity int `yaml:"history_capacity" validate:"gt=0"`
}

// StorageConfig locates the lecture files and the chunk catalog.
type StorageConfig struct {
	DataDir string `yaml:"data_dir" validate:"required"`
	DBDir   string `yaml:"db_dir"   validate:"required"`
}

// CatalogPath is the sqlite file holding processed chunks.
func (c StorageConfig) CatalogPath() string { return filepath.Join(c.DBDir, "catalog.db") }

// SummarizerConfig selects and configures the summarizer.
type SummarizerConfig struct {
	Type         string `yaml:"type"          validate:"oneof=frequency"`
	MaxSentences int    `yaml:"max_sentences" validate:"gt=0"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error disabled"`
	// File receives logs while the chat screen owns the terminal.
	File string `yaml:"file"`
	JSON bool   `yaml:"json"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Ollama      OllamaConfig      `yaml:"ollama"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Prompt      PromptConfig      `yaml:"prompt"`
	Session     SessionConfig     `yaml:"session"`
	Storage     StorageConfig     `yaml:"storage"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
	Log         LogConfig         `yaml:"log"`
}

// Load reads a config from a specified path over the defaults. If the file
// does not exist the defaults are returned. Environment overrides are applied
// and the result is validated.
func Load(path string) (*AppConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := ApplyEnv(cfg, os.Getenv); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/ragchitchat/config.yaml.
// If neither exists, it writes defaults to the user path and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); errors.Is(err, os.ErrNotExist) {
		if err := Save(userPath, Default()); err != nil {
			return nil, "", err
		}
	}
	cfg, err := Load(userPath)
	return cfg, userPath, err
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ragchitchat", "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	return &AppConfig{
		Ollama: OllamaConfig{
			URL:         "http://localhost:11434",
			Model:       "mistral:7b-instruct-v0.3-q4_1",
			TimeoutSecs: 10,
			Temperature: 0.7,
			MaxTokens:   1024,
		},
		Embedder:    EmbedderConfig{Type: "tfidf", APIKeyEnv: "OPENAI_API_KEY", BatchSize: 32, CacheSize: 256},
		Chunker:     ChunkerConfig{Type: "recursive", Size: 1000, Overlap: 200},
		VectorStore: VectorStoreConfig{Type: "memory"},
		Retrieval: RetrievalConfig{
			TopK:          5,
			Fusion:        "minmax",
			VectorWeight:  0.5,
			LexicalWeight: 0.5,
			BM25K1:        1.5,
			BM25B:         0.75,
		},
		Prompt:     PromptConfig{ContextBudget: 3000, HistoryTurns: 3, TokenCounter: "estimate", FewShot: true},
		Session:    SessionConfig{HistoryCapacity: 10},
		Storage:    StorageConfig{DataDir: "data", DBDir: "db"},
		Summarizer: SummarizerConfig{Type: "frequency", MaxSentences: 5},
		Log:        LogConfig{Level: "info", File: "ragchitchat.log"},
	}
}

type envInt struct {
	key    string
	target *int
}

// ApplyEnv overrides settings from the environment. Unset or empty variables
// are ignored.
func ApplyEnv(cfg *AppConfig, getenv func(string) string) error {
	if v := getenv("OLLAMA_URL"); v != "" {
		cfg.Ollama.URL = v
	}
	if v := getenv("RAGCHITCHAT_MODEL"); v != "" {
		cfg.Ollama.Model = v
	}
	if v := getenv("RAGCHITCHAT_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := getenv("RAGCHITCHAT_DB_DIR"); v != "" {
		cfg.Storage.DBDir = v
	}
	ints := []envInt{
		{"RAGCHITCHAT_CHUNK_SIZE", &cfg.Chunker.Size},
		{"RAGCHITCHAT_CHUNK_OVERLAP", &cfg.Chunker.Overlap},
		{"RAGCHITCHAT_TOP_K", &cfg.Retrieval.TopK},
		{"RAGCHITCHAT_HISTORY_CAPACITY", &cfg.Session.HistoryCapacity},
	}
	for _, e := range ints {
		v := strings.TrimSpace(getenv(e.key))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %q is not an integer", e.key, v)
		}
		*e.target = n
	}
	return nil
}

var validate = validator.New()

// Validate checks struct constraints and the rules that span fields.
func Validate(cfg *AppConfig) error {
	if cfg == nil {
		return errors.New("configuration cannot be nil")
	}
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if cfg.Retrieval.VectorWeight == 0 && cfg.Retrieval.LexicalWeight == 0 {
		return errors.New("validation failed: retrieval weights cannot both be zero")
	}
	return nil
}
