package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/convoflow/convoflow/pkg/config"
	"github.com/convoflow/convoflow/pkg/logging"
)

// Version is the current version of convoflow.
const Version = "1.0.0"

// rootState carries flags and loaded configuration between the root
// command and its subcommands.
type rootState struct {
	configPath string
	debug      bool

	cfg *config.Config
	log zerolog.Logger
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	state := &rootState{}

	cmd := &cobra.Command{
		Use:   "convoflow",
		Short: "convoflow - conversational flow interpreter",
		Long: `convoflow walks chat sessions through YAML-defined flow graphs:
messages, menus, user input, HTTP calls, and time windows, with
per-session variable state persisted between events.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(state.configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if state.debug {
				cfg.Logging.Level = "debug"
			}

			logger, err := logging.Init(logging.Options{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
				Output: cfg.Logging.Output,
			})
			if err != nil {
				return fmt.Errorf("failed to initialize logging: %w", err)
			}

			state.cfg = cfg
			state.log = logger
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&state.configPath, "config", "c", "", "Path to the configuration file")
	cmd.PersistentFlags().BoolVar(&state.debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newRunCommand(state))
	cmd.AddCommand(newListCommand(state))
	cmd.AddCommand(NewCredentialCommand())

	return cmd
}
