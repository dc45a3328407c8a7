package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"ragchitchat/internal/config"
	"ragchitchat/internal/logger"
	"ragchitchat/internal/tui"
)

type rootFlags struct {
	configPath string
	logLevel   string
	logJSON    bool
}

func RootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "ragchitchat",
		Short:         "Chat with your lecture notes through a local Ollama model",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd.Context(), flags)
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "",
		"Path to YAML config file (defaults to ./config.yaml or ~/.config/ragchitchat/config.yaml)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error, disabled")
	root.PersistentFlags().BoolVar(&flags.logJSON, "log-json", false, "Write logs as JSON")

	root.AddCommand(
		ChatCmd(flags),
		AskCmd(flags),
		IngestCmd(flags),
		ModelsCmd(flags),
	)
	return root
}

func ChatCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Open the interactive chat screen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd.Context(), flags)
		},
	}
}

func AskCmd(flags *rootFlags) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question and print the streamed answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cfg, closeLog, err := prepare(cmd.Context(), flags, os.Stderr)
			if err != nil {
				return err
			}
			defer closeLog()
			a, err := newApp(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()
			s, err := a.newSession()
			if err != nil {
				return err
			}
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			st, err := s.Ask(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for {
				text, ok := st.Next()
				if !ok {
					break
				}
				fmt.Fprint(out, text)
			}
			fmt.Fprintln(out)
			if err := st.Err(); err != nil {
				return err
			}
			for i, sc := range st.Result().Chunks {
				fmt.Fprintf(out, "[%d] %s (%s %.2f)\n", i+1, sc.Chunk.Locator(), sc.Method, sc.Score)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Abort generation after this long (0 disables)")
	return cmd
}

func IngestCmd(flags *rootFlags) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Build the chunk catalog from the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cfg, closeLog, err := prepare(cmd.Context(), flags, os.Stderr)
			if err != nil {
				return err
			}
			defer closeLog()
			a, err := newApp(ctx, cfg, force)
			if err != nil {
				return err
			}
			defer a.Close()
			state := "rebuilt"
			if a.kb.Reused {
				state = "unchanged"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d chunks from %d files (%s)\n", a.kb.Store.Len(), len(a.kb.Sources), state)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Rebuild even if the corpus is unchanged")
	return cmd
}

func ModelsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models installed on the Ollama server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cfg, closeLog, err := prepare(cmd.Context(), flags, os.Stderr)
			if err != nil {
				return err
			}
			defer closeLog()
			models, err := newCompleter(cfg).ListModels(ctx)
			if err != nil {
				return err
			}
			for _, m := range models {
				marker := "  "
				if m == cfg.Ollama.Model {
					marker = "* "
				}
				fmt.Fprintln(cmd.OutOrStdout(), marker+m)
			}
			return nil
		},
	}
}

func runChat(ctx context.Context, flags *rootFlags) error {
	ctx, cfg, closeLog, err := prepare(ctx, flags, nil)
	if err != nil {
		return err
	}
	defer closeLog()
	a, err := newApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()
	s, err := a.newSession()
	if err != nil {
		return err
	}
	if _, err := s.AvailableModels(ctx); err != nil {
		logger.FromContext(ctx).Warn("ollama is not reachable", "url", cfg.Ollama.URL, "error", err)
	}
	m := tui.New(ctx, s, tui.Overview{
		Chunks:  a.kb.Store.Len(),
		Sources: a.kb.Sources,
		Summary: a.kb.Summary,
	})
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

// prepare loads configuration, applies flag overrides and installs the logger.
func prepare(ctx context.Context, flags *rootFlags, logOut io.Writer) (context.Context, *config.AppConfig, func(), error) {
	cfg, err := loadConfig(flags.configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if flags.logJSON {
		cfg.Log.JSON = true
	}
	ctx, closer, err := setupLogger(ctx, cfg, logOut)
	if err != nil {
		return nil, nil, nil, err
	}
	return ctx, cfg, func() {
		if closer != nil {
			_ = closer.Close()
		}
	}, nil
}
