// Package commands implements the verdant CLI using Cobra.
package commands

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/petal-labs/verdant/cli/config"
	"github.com/petal-labs/verdant/cli/keystore"
	"github.com/petal-labs/verdant/core"
	"github.com/petal-labs/verdant/telemetry/tracing"
)

// ConfigLoader loads CLI config from a path.
type ConfigLoader func(path string) (*config.Config, error)

// TransportFactory creates the default-provider transport for the configured backend.
type TransportFactory func(cfg *config.Config, apiKey string) (core.Transport, error)

// KeystoreFactory creates a keystore instance.
type KeystoreFactory func() (keystore.Keystore, error)

// AppOption customizes App dependencies.
type AppOption func(*App)

// App holds CLI state and runtime dependencies.
type App struct {
	root *cobra.Command

	loadConfig   ConfigLoader
	newTransport TransportFactory
	newKeystore  KeystoreFactory
	getenv       func(string) string
	stdin        io.Reader
	stdout       io.Writer
	stderr       io.Writer

	cfgFile    string
	envFile    string
	jsonOutput bool
	verbose    bool

	cfg     *config.Config
	logger  *zap.Logger
	tracing *tracing.Provider
}

// WithConfigLoader injects a config loader dependency.
func WithConfigLoader(loader ConfigLoader) AppOption {
	return func(a *App) {
		if loader != nil {
			a.loadConfig = loader
		}
	}
}

// WithTransportFactory injects a transport factory dependency.
func WithTransportFactory(factory TransportFactory) AppOption {
	return func(a *App) {
		if factory != nil {
			a.newTransport = factory
		}
	}
}

// WithKeystoreFactory injects a keystore factory dependency.
func WithKeystoreFactory(factory KeystoreFactory) AppOption {
	return func(a *App) {
		if factory != nil {
			a.newKeystore = factory
		}
	}
}

// WithEnv injects the environment lookup used for API keys.
func WithEnv(getenv func(string) string) AppOption {
	return func(a *App) {
		if getenv != nil {
			a.getenv = getenv
		}
	}
}

// WithIO injects process I/O streams.
func WithIO(stdin io.Reader, stdout, stderr io.Writer) AppOption {
	return func(a *App) {
		if stdin != nil {
			a.stdin = stdin
		}
		if stdout != nil {
			a.stdout = stdout
		}
		if stderr != nil {
			a.stderr = stderr
		}
	}
}

// NewApp creates a new CLI app with default dependencies.
func NewApp(opts ...AppOption) *App {
	a := &App{
		loadConfig:   config.LoadConfig,
		newTransport: defaultTransportFactory,
		newKeystore:  keystore.NewKeystore,
		getenv:       os.Getenv,
		stdin:        os.Stdin,
		stdout:       os.Stdout,
		stderr:       os.Stderr,
		logger:       zap.NewNop(),
	}

	for _, opt := range opts {
		opt(a)
	}

	a.root = a.newRootCommand()
	return a
}

func (a *App) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "verdant",
		Short: "Verdant - AI garden photo editing",
		Long: `Verdant edits garden photos with natural-language instructions.

Use Verdant to edit or inpaint photos, refine edit prompts, get landscaping
suggestions for a photo, and serve the same operations over HTTP.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig(cmd.Context())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ~/.verdant/config.yaml)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file to load API keys from, if present")
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "emit JSON output")
	root.PersistentFlags().BoolVar(&a.verbose, "verbose", false, "enable debug logging")

	root.AddCommand(a.newEditCommand())
	root.AddCommand(a.newInpaintCommand())
	root.AddCommand(a.newImproveCommand())
	root.AddCommand(a.newAnalyzeCommand())
	root.AddCommand(a.newSettingsCommand())
	root.AddCommand(a.newKeysCommand())
	root.AddCommand(a.newServeCommand())
	root.AddCommand(a.newVersionCommand())

	return root
}

// Execute runs the root command.
func (a *App) Execute() error {
	return a.ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx.
func (a *App) ExecuteContext(ctx context.Context) error {
	err := a.root.ExecuteContext(ctx)
	a.shutdown(context.Background())
	if err == nil {
		return nil
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return err
	}
	// Flag and argument errors from cobra.
	a.printError("VALIDATION_ERROR", err)
	return exitWithCode(ExitValidation, err)
}

// SetArgs overrides the command-line arguments.
func (a *App) SetArgs(args []string) {
	a.root.SetArgs(args)
}

func (a *App) initConfig(ctx context.Context) error {
	if a.envFile != "" {
		if _, err := os.Stat(a.envFile); err == nil {
			if err := godotenv.Load(a.envFile); err != nil {
				return a.handleError(validationError("load %s: %w", a.envFile, err))
			}
		}
	}

	path := a.cfgFile
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := a.loadConfig(path)
	if err != nil {
		return a.handleError(exitWithCode(ExitValidation, err))
	}
	a.cfg = cfg
	a.logger = newLogger(cfg.Log, a.verbose, a.stderr)

	if ctx == nil {
		ctx = context.Background()
	}
	tp, err := tracing.Init(ctx, tracing.Config{
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: "verdant",
		SampleRate:  cfg.Tracing.SampleRate,
		Insecure:    cfg.Tracing.Insecure,
	}, a.logger)
	if err != nil {
		a.logger.Warn("tracing disabled", zap.Error(err))
		tp = nil
	}
	a.tracing = tp
	return nil
}

func (a *App) shutdown(ctx context.Context) {
	if err := a.tracing.Shutdown(ctx); err != nil {
		a.logger.Warn("tracing shutdown failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}

var defaultApp = NewApp()

// Execute runs the default app root command.
func Execute(ctx context.Context) error {
	return defaultApp.ExecuteContext(ctx)
}
