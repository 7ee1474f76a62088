package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/milosz-l/portfolio/internal/assets"
	"github.com/milosz-l/portfolio/internal/config"
	"github.com/milosz-l/portfolio/internal/content"
	"github.com/milosz-l/portfolio/internal/site"
	"github.com/milosz-l/portfolio/internal/visitors"
)

const (
	shutdownTimeout   = 10 * time.Second
	retentionInterval = time.Hour
)

var (
	verbose    bool
	outputPath string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Personal portfolio website",
	Long: `Serves a single-page portfolio: bio, experience, education, projects,
skills, socials and a contact form relayed through formsubmit.co.

Settings come from the environment (a .env file is read if present).
Run without a subcommand to start the server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		zcfg := zap.NewProductionConfig()
		zcfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the page to HTML without starting a server",
	Long: `Loads every asset exactly as the server would and writes one render
pass of the page to stdout, or to the file given with --output.`,
	RunE: runRender,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	renderCmd.Flags().StringVarP(&outputPath, "output", "o", "", "write HTML to this file instead of stdout")

	rootCmd.AddCommand(serveCmd, renderCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadPortfolio reads the content and every asset it names.
func loadPortfolio(ctx context.Context) (*content.Portfolio, *assets.Bundle, error) {
	var (
		portfolio *content.Portfolio
		err       error
	)
	if cfg.ContentPath != "" {
		portfolio, err = content.Load(cfg.ContentPath)
	} else {
		portfolio, err = content.Default()
	}
	if err != nil {
		return nil, nil, err
	}

	loader := assets.NewLoader(cfg.Root, &http.Client{}, logger, assets.WithTimeout(cfg.LottieTimeout))
	bundle, err := loader.Load(ctx, portfolio.Manifest())
	if err != nil {
		return nil, nil, fmt.Errorf("load assets: %w", err)
	}
	return portfolio, bundle, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	portfolio, bundle, err := loadPortfolio(ctx)
	if err != nil {
		return err
	}

	store, err := visitors.Open(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	hasher, err := visitors.NewHasher()
	if err != nil {
		return err
	}

	if cfg.AdminDefaults {
		logger.Warn("Using default admin credentials. Set ADMIN_USERNAME and ADMIN_PASSWORD.")
	}

	srv, err := site.New(site.Options{
		Portfolio:      portfolio,
		Bundle:         bundle,
		Visitors:       store,
		Hasher:         hasher,
		Logger:         logger,
		AdminUsername:  cfg.AdminUsername,
		AdminPassword:  cfg.AdminPassword,
		Retention:      cfg.VisitorRetention,
		TrustedProxies: cfg.TrustedProxies,
	})
	if err != nil {
		return err
	}

	go store.RunRetention(ctx, retentionInterval, cfg.VisitorRetention, logger)

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening", zap.String("addr", httpServer.Addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func runRender(cmd *cobra.Command, args []string) error {
	portfolio, bundle, err := loadPortfolio(cmd.Context())
	if err != nil {
		return err
	}
	page, err := site.BuildPage(portfolio, bundle)
	if err != nil {
		return err
	}

	if outputPath == "" {
		return writePage(cmd.OutOrStdout(), page)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := writePage(f, page); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	logger.Debug("Rendered page", zap.String("output", outputPath))
	return nil
}

func writePage(out io.Writer, page *site.Page) error {
	w := bufio.NewWriter(out)
	if err := site.RenderPage(w, page); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
