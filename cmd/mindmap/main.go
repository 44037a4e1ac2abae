package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chriscarrollsmith/mindmap-generator/internal/api"
	"github.com/chriscarrollsmith/mindmap-generator/internal/config"
	"github.com/chriscarrollsmith/mindmap-generator/internal/labels"
	"github.com/chriscarrollsmith/mindmap-generator/internal/loader"
	"github.com/chriscarrollsmith/mindmap-generator/internal/oracle"
	"github.com/chriscarrollsmith/mindmap-generator/internal/pipeline"
	"github.com/chriscarrollsmith/mindmap-generator/internal/render"
)

var (
	rootCmd = &cobra.Command{
		Use:           "mindmap",
		Short:         "Turn documents into Mermaid mindmaps",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	provider string
	outDir   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "Override API_PROVIDER (claude, openai, deepseek, gemini)")
	generateCmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory for generated files (default OUTPUT_DIR)")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(serveCmd)
}

// setup loads configuration and builds the oracle client and generator shared
// by both commands.
func setup(ctx context.Context, server bool) (config.Config, *oracle.Client, *pipeline.Generator, *slog.Logger, error) {
	cfg := config.Load()
	if provider != "" {
		cfg.Provider = strings.ToUpper(provider)
	}
	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	validate := cfg.Validate
	if server {
		validate = cfg.ValidateServer
	}
	if err := validate(); err != nil {
		return cfg, nil, nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	client, err := oracle.New(ctx, cfg, log)
	if err != nil {
		return cfg, nil, nil, nil, fmt.Errorf("create oracle: %w", err)
	}
	var sel *labels.Selector
	if cfg.LabelsEnabled {
		sel = labels.New(client, cfg.LabelCachePath, log)
	}
	gen, err := pipeline.NewGenerator(client, sel, pipeline.OptionsFromConfig(cfg), log)
	if err != nil {
		return cfg, nil, nil, nil, err
	}
	return cfg, client, gen, log, nil
}

var generateCmd = &cobra.Command{
	Use:   "generate <file>",
	Short: "Generate a mindmap from a local document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, client, gen, log, err := setup(ctx, false)
		if err != nil {
			return err
		}

		path := args[0]
		doc, err := loader.Open(path, loader.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext})
		if err != nil {
			return err
		}
		text := doc.Text()
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("%s: no extractable text", path)
		}

		start := time.Now()
		tree, err := gen.BuildConceptTree(ctx, text, filepath.Base(path))
		if err != nil {
			return err
		}
		outputs, err := render.All(tree, doc.Title)
		if err != nil {
			return err
		}

		dir := outDir
		if dir == "" {
			dir = cfg.OutputDir
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		for _, f := range render.Formats {
			name := filepath.Join(dir, base+"_mindmap"+f.Extension())
			if f == render.FormatMarkdown {
				name = filepath.Join(dir, base+"_mindmap_outline"+f.Extension())
			}
			if err := os.WriteFile(name, []byte(outputs[f]), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", f, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", name)
		}
		log.Info("mindmap generated",
			"file", path,
			"topics", tree.TopicCount(),
			"nodes", tree.Count(),
			"duration", time.Since(start).Round(time.Millisecond).String(),
		)
		return client.Usage.Report(cmd.OutOrStdout())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		cfg, client, gen, log, err := setup(ctx, true)
		if err != nil {
			return err
		}

		orch := pipeline.NewOrchestrator(cfg, gen, log)
		orch.Start(ctx)

		srv := api.NewServer(orch, client, log, cfg)
		httpServer := &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      srv,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		// Graceful shutdown.
		done := make(chan struct{})
		go func() {
			defer close(done)
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh
			log.Info("shutting down...")

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				log.Warn("http shutdown", "error", err)
			}
			orch.Stop()
		}()

		log.Info("starting mindmap service", "port", cfg.Port, "provider", client.ProviderName(), "model", client.Model())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		<-done
		return nil
	},
}
