package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/strrl/split-specs-dashboard/internal/api"
	"github.com/strrl/split-specs-dashboard/internal/auth"
	"github.com/strrl/split-specs-dashboard/internal/config"
	"github.com/strrl/split-specs-dashboard/internal/db"
	"github.com/strrl/split-specs-dashboard/internal/logging"
	"github.com/strrl/split-specs-dashboard/internal/retry"
	"github.com/strrl/split-specs-dashboard/internal/sessions"
	"github.com/strrl/split-specs-dashboard/internal/stats"
	"github.com/strrl/split-specs-dashboard/internal/tui"
)

var (
	debugMode bool
	endpoint  string
)

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "split-specs",
		Short: "Dashboard for split-specs test sessions",
		Long: `split-specs is a terminal dashboard for the split-specs service.
It browses projects and their test sessions, shows how specs were spread
across machines, and manages API keys.`,
		SilenceUsage: true,
		RunE:         runTUI,
	}

	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Log at debug level to stderr instead of the log file")
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "GraphQL endpoint (overrides SPLIT_SPECS_ENDPOINT)")

	rootCmd.AddCommand(NewLoginCommand())
	rootCmd.AddCommand(NewRegisterCommand())
	rootCmd.AddCommand(NewLogoutCommand())
	rootCmd.AddCommand(NewShowCommand())
	rootCmd.AddCommand(NewHistoryCommand())
	rootCmd.AddCommand(NewStatsCommand())
	rootCmd.AddCommand(NewSessionCommand())
	rootCmd.AddCommand(NewProjectCommand())
	rootCmd.AddCommand(NewApiKeyCommand())
	rootCmd.AddCommand(NewDebugCommand())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// app is everything a command needs to talk to the service
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	gate   *auth.Gate
	svc    *sessions.Service
	closer io.Closer
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if endpoint != "" {
		cfg.Endpoint = endpoint
	}

	a := &app{cfg: cfg}
	if debugMode {
		a.logger = logging.New("debug", cmd.ErrOrStderr())
	} else {
		a.logger, a.closer, err = logging.NewFile(cfg.LogLevel, cfg.LogFile)
		if err != nil {
			return nil, err
		}
	}

	ctx := cmd.Context()
	a.gate, err = auth.NewGate(ctx, auth.NewFileStore(cfg.CredentialsFile), a.logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	client := api.NewClient(cfg.Endpoint, cfg.RequestTimeout, a.gate, a.gate, a.logger)
	a.svc = sessions.NewService(client, a.gate, sessions.Options{
		PageSize:    cfg.PageSize,
		PageTimeout: cfg.RequestTimeout,
		Refetch: retry.Config{
			MaxAttempts: cfg.NextSpecAttempts,
			BaseDelay:   cfg.NextSpecBaseDelay,
			MaxDelay:    cfg.NextSpecMaxDelay,
		},
	}, a.logger)

	a.logger.Debug().Str("endpoint", cfg.Endpoint).Bool("logged_in", a.gate.LoggedIn()).Msg("client ready")
	return a, nil
}

// requireLogin fails fast instead of sending an unauthenticated request
func (a *app) requireLogin() error {
	if !a.gate.LoggedIn() {
		return fmt.Errorf("not signed in, run \"split-specs login\" first")
	}
	return nil
}

func (a *app) analyzer() (*stats.Analyzer, error) {
	database, err := db.GetDB()
	if err != nil {
		return nil, err
	}
	return stats.NewAnalyzer(database, a.logger), nil
}

func (a *app) Close() {
	if a.closer != nil {
		a.closer.Close()
	}
}

// withApp builds the app for one command invocation and tears it down after.
func withApp(fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, args, a)
	}
}

// withLogin is withApp for commands that need a signed in user.
func withLogin(fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return withApp(func(cmd *cobra.Command, args []string, a *app) error {
		if err := a.requireLogin(); err != nil {
			return err
		}
		return fn(cmd, args, a)
	})
}

func runTUI(cmd *cobra.Command, args []string) error {
	return withApp(func(cmd *cobra.Command, args []string, a *app) error {
		analyzer, err := a.analyzer()
		if err != nil {
			// the dashboard still works, only the stats view is disabled
			a.logger.Warn().Err(err).Msg("duckdb unavailable")
			analyzer = nil
		}

		if err := tui.Run(cmd.Context(), a.svc, analyzer, a.logger); err != nil {
			return fmt.Errorf("TUI error: %w", err)
		}
		return nil
	})(cmd, args)
}
