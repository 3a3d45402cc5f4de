package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/estivenmendezr98/TAREAS/internal/config"
	"github.com/estivenmendezr98/TAREAS/internal/logger"

	"github.com/spf13/cobra"
)

// state is shared by the subcommands once the root pre-run has loaded it.
type state struct {
	configFile string
	logLevel   string
	logFormat  string

	cfg *config.Config
	log *logger.Logger
}

// NewRootCommand builds the command tree. Each call returns a fresh tree so
// tests can run commands side by side.
func NewRootCommand() *cobra.Command {
	st := &state{}

	root := &cobra.Command{
		Use:   "tareas",
		Short: "Project and task tracker with a recycle bin",
		Long: `tareas serves the project/task API. Deleted projects and tasks stay in
a recycle bin until they are restored, removed for good, or expire.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return st.load(cmd)
		},
	}

	root.PersistentFlags().StringVar(&st.configFile, "config", "", "YAML config file (overrides CONFIG_FILE)")
	root.PersistentFlags().StringVar(&st.logLevel, "log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	root.PersistentFlags().StringVar(&st.logFormat, "log-format", "", "Log format (text or json)")

	root.AddCommand(newServeCommand(st))
	root.AddCommand(newMigrateCommand(st))
	root.AddCommand(newSweepCommand(st))
	return root
}

// Execute runs the root command
func Execute() error {
	return NewRootCommand().Execute()
}

func (st *state) load(cmd *cobra.Command) error {
	if st.configFile != "" {
		if err := os.Setenv("CONFIG_FILE", st.configFile); err != nil {
			return err
		}
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = st.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Log.Format = strings.ToLower(st.logFormat)
	}

	if err := logger.Init(logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	st.cfg = cfg
	st.log = logger.Default()
	st.log.Debug("configuration loaded",
		logger.F("command", cmd.Name()),
		logger.F("environment", cfg.Server.Environment),
		logger.F("database", cfg.Database.Driver),
		logger.F("redis", cfg.RedisEnabled()),
	)
	return nil
}
