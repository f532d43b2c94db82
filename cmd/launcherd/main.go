package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"launcherd/internal/config"
	"launcherd/internal/httpapi"
	"launcherd/internal/launcher"
	"launcherd/internal/monitor"
	"launcherd/internal/registry"
	"launcherd/pkg/types"
)

var version = "dev"

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseLogLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func newLogger(level string) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLogLevel(level))
	var w = zerolog.NewConsoleWriter()
	if fi, err := os.Stderr.Stat(); err == nil && fi.Mode()&os.ModeCharDevice == 0 {
		// Not a terminal: plain JSON lines for log shippers.
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	w.Out = os.Stderr
	return zerolog.New(w).With().Timestamp().Logger()
}

// loadConfig merges the optional config file with flag/env overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if v, _ := cmd.Flags().GetString("addr"); cmd.Flags().Changed("addr") || cfg.Addr == "" {
		cfg.Addr = v
	}
	if v, _ := cmd.Flags().GetString("tools"); cmd.Flags().Changed("tools") || cfg.ToolsPath == "" {
		cfg.ToolsPath = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); cmd.Flags().Changed("log-level") || cfg.LogLevel == "" {
		cfg.LogLevel = v
	}
	return cfg, nil
}

func loadCatalog(path string, log zerolog.Logger) []types.Tool {
	if path == "" {
		return nil
	}
	tools, err := registry.Load(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("tool catalog not loaded; starting with an empty catalog")
		return nil
	}
	return tools
}

func buildLauncher(cfg config.Config, tools []types.Tool, log zerolog.Logger) *launcher.Launcher {
	l := launcher.New(launcher.Config{
		Catalog:          tools,
		BufferMaxSize:    cfg.BufferMaxSize,
		DisplayThreshold: cfg.DisplayThreshold,
		StopGrace:        time.Duration(cfg.StopGraceSeconds) * time.Second,
		MaxRestarts:      cfg.MaxRestarts,
		RestartWindow:    time.Duration(cfg.RestartWindowSeconds) * time.Second,
		RestartDelay:     time.Duration(cfg.RestartDelaySeconds) * time.Second,
	}, log)
	l.SetSampler(monitor.ProcSampler{})

	if cfg.VRAM.Enabled {
		backends := []monitor.Backend{monitor.NewNvidiaSMIBackend(cfg.VRAM.NvidiaSMIBin)}
		var cleaners []monitor.Cleaner
		for _, c := range cfg.VRAM.Cleanup {
			cleaners = append(cleaners, monitor.CommandCleaner{
				CleanerName: c.Name,
				Bin:         c.Bin,
				Args:        c.Args,
				ForceArgs:   c.ForceArgs,
			})
		}
		guard := monitor.NewGuard(monitor.GuardConfig{
			PollInterval:   time.Duration(cfg.VRAM.PollSeconds) * time.Second,
			WarningPct:     cfg.VRAM.WarningPct,
			CriticalPct:    cfg.VRAM.CriticalPct,
			AutoCleanupPct: cfg.VRAM.AutoCleanupPct,
			PredictivePct:  cfg.VRAM.PredictivePct,
			NotifyCooldown: time.Duration(cfg.VRAM.CooldownSeconds) * time.Second,
			HistorySize:    cfg.VRAM.HistorySize,
		}, backends, cleaners, log)
		l.SetGuard(guard)
	}
	return l
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cfg.LogLevel)
	httpapi.SetLogger(log)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins,
		[]string{"GET", "POST", "DELETE", "OPTIONS"},
		[]string{"Accept", "Content-Type", "X-Log-Level"})

	tools := loadCatalog(cfg.ToolsPath, log)
	l := buildLauncher(cfg, tools, log)

	srv := &http.Server{Addr: cfg.Addr, Handler: httpapi.NewMux(l)}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr).Int("tools", len(tools)).Msg("launcherd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if guard := l.Guard(); guard != nil {
		g.Go(func() error {
			guard.Run(ctx)
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("graceful shutdown error")
		}
		return l.Close()
	})
	return g.Wait()
}

func runTools(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cfg.LogLevel)
	tools := loadCatalog(cfg.ToolsPath, log)
	if len(tools) == 0 {
		fmt.Println("no tools configured")
		return nil
	}
	for _, t := range tools {
		restart := ""
		if t.AutoRestart {
			restart = " (auto-restart)"
		}
		fmt.Printf("%-20s %s%s\n", t.Name, strings.Join(t.Command, " "), restart)
	}
	return nil
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "launcherd",
		Short:         "Launch and supervise external AI tool processes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", envOr("LAUNCHERD_CONFIG", ""), "Path to a yaml/json/toml config file")
	root.PersistentFlags().String("addr", envOr("LAUNCHERD_ADDR", ":8090"), "HTTP listen address, e.g. :8090")
	root.PersistentFlags().String("tools", envOr("LAUNCHERD_TOOLS", "~/.launcherd/tools"), "Tool catalog file or directory")
	root.PersistentFlags().String("log-level", envOr("LAUNCHERD_LOG_LEVEL", "info"), "Log level: debug|info|warn|error")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the launcher daemon",
		RunE:  runServe,
	}
	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "List the configured tool catalog",
		RunE:  runTools,
	}
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(*cobra.Command, []string) {
			fmt.Println(version)
		},
	}
	root.AddCommand(serveCmd, toolsCmd, versionCmd)
	root.RunE = runServe // bare `launcherd` serves
	return root
}

func main() {
	_ = godotenv.Load()
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
