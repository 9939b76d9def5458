package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/proxherd/proxherd/internal/config"
	"github.com/proxherd/proxherd/internal/launcher"
	"github.com/proxherd/proxherd/internal/logging"
	"github.com/proxherd/proxherd/internal/store"
	"github.com/proxherd/proxherd/internal/supervisor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "proxherd",
	Short: "Local proxy-worker process supervisor",
	Long: `Proxherd launches, tracks, and terminates local proxy worker
processes. Each worker is a detached subprocess bound to its own local
port, coordinated through per-proxy records in a file-backed store, so
workers survive supervisor restarts and can be managed from any
invocation.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/proxherd/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/proxherd")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("PROXHERD")
	// Replace dots with underscores for nested keys in env vars
	// e.g., PROXHERD_SUPERVISOR_MAX_ATTEMPTS for supervisor.max_attempts
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// appContext bundles the dependencies most commands assemble from the
// loaded configuration.
type appContext struct {
	cfg    *config.Config
	logger *logging.Logger
	store  *store.Store
}

func buildApp() (*appContext, error) {
	cfg := config.Get()
	logger := buildLogger(cfg)
	st, err := store.New(cfg.Store.ResolveDir(), logger)
	if err != nil {
		logger.Close()
		return nil, err
	}
	return &appContext{cfg: cfg, logger: logger, store: st}, nil
}

// Close flushes the supervisor log file.
func (a *appContext) Close() {
	if a.logger != nil {
		_ = a.logger.Close()
	}
}

// buildLogger constructs the file-backed logger described by the
// config. Logging must never take the command down with it, so any
// failure degrades to a no-op logger.
func buildLogger(cfg *config.Config) *logging.Logger {
	if !cfg.Logging.Enabled {
		return logging.NopLogger()
	}
	logger, err := logging.NewLoggerWithRotation(cfg.Logging.ResolveDir(), cfg.Logging.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   cfg.Logging.Compress,
	})
	if err != nil {
		return logging.NopLogger()
	}
	return logger
}

// buildSupervisor wires the lifecycle API around the shared store. The
// launcher re-invokes this same executable in worker mode.
func buildSupervisor(app *appContext) *supervisor.Supervisor {
	l := launcher.New(launcher.Options{
		Executable: executablePath(),
		Args:       []string{"proxy-worker", "start"},
		LogDir:     app.cfg.Supervisor.LogDir,
	}, app.logger)
	return supervisor.New(app.store, l, nil, app.cfg.Supervisor, app.logger)
}

func executablePath() string {
	exe, err := os.Executable()
	if err != nil {
		return os.Args[0]
	}
	return exe
}

// workerLogDir mirrors the launcher's log directory resolution so
// reading commands find the same files workers write.
func workerLogDir(cfg *config.Config) string {
	if cfg.Supervisor.LogDir != "" {
		return cfg.Supervisor.LogDir
	}
	return os.TempDir()
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
