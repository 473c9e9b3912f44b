package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deepnoodle-ai/skillet"
	"github.com/deepnoodle-ai/skillet/config"
	"github.com/deepnoodle-ai/skillet/slogger"
	"github.com/deepnoodle-ai/skillet/store"
)

// version is set at build time with -ldflags "-X ...cli.version=...".
var version = "dev"

var (
	configPath  string
	envFiles    []string
	logLevel    string
	provider    string
	model       string
	storeDriver string
	storeDir    string
)

var rootCmd = &cobra.Command{
	Use:   "skillet",
	Short: "Pick and run skills for free-text requests",
	Long: `Skillet keeps a registry of small scripted skills, asks a language model
which of them apply to a message, extracts their parameters and runs them.

Skills are authored as JSON or YAML definitions and vetted in a sandboxed
subprocess before they are registered.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Path to a YAML or JSON config file")
	flags.StringSliceVar(&envFiles, "env-file", nil, "Additional .env files to load (default .env)")
	flags.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&provider, "provider", "", "Oracle provider (ollama, openai, google)")
	flags.StringVarP(&model, "model", "m", "", "Oracle model")
	flags.StringVar(&storeDriver, "store", "", "Skill store driver (file, sqlite, redis, postgres, memory)")
	flags.StringVar(&storeDir, "store-dir", "", "Directory for the file store")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Sprintf("Error: %v", err))
		os.Exit(1)
	}
}

// loadConfig reads .env files, the config file and SKILLET_* variables, then
// applies command line overrides.
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if provider != "" {
		cfg.Oracle.Provider = provider
		if model == "" {
			cfg.Oracle.Model = ""
		}
	}
	if model != "" {
		cfg.Oracle.Model = model
	}
	if storeDriver != "" {
		cfg.Store.Driver = storeDriver
	}
	if storeDir != "" {
		cfg.Store.Dir = storeDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app holds the components a command works with.
type app struct {
	cfg      *config.Config
	logger   slogger.Logger
	store    store.Store
	registry *skillet.Registry
}

// openApp loads configuration and the registry. The caller must close it.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := cfg.NewLogger()
	st, err := cfg.OpenStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("open skill store: %w", err)
	}
	registry := skillet.NewRegistry(cfg.RegistryOptions(st, logger))
	if err := registry.Load(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, store: st, registry: registry}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// selector builds the oracle-backed selector.
func (a *app) selector() (*skillet.Selector, error) {
	oracle, err := a.cfg.NewOracle(a.logger)
	if err != nil {
		return nil, err
	}
	return skillet.NewSelector(a.cfg.SelectorOptions(oracle, a.logger)), nil
}

func (a *app) runner() (*skillet.Runner, error) {
	sel, err := a.selector()
	if err != nil {
		return nil, err
	}
	return skillet.NewRunner(skillet.RunnerOptions{
		Registry: a.registry,
		Selector: sel,
		Logger:   a.logger,
	}), nil
}

// withApp runs fn with an open app.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(slogger.WithLogger(ctx, a.logger), a)
}
