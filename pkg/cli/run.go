package cli

import (
	"bufio"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/convoflow/convoflow/pkg/config"
	"github.com/convoflow/convoflow/pkg/engine"
	"github.com/convoflow/convoflow/pkg/storage"
)

// newRunCommand creates the run subcommand: an interactive console
// session against one flow.
func newRunCommand(state *rootState) *cobra.Command {
	var userID string
	var idleTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "run <flow-name>",
		Short: "Run a flow interactively on the console",
		Long: `Run a flow from the configured flows directory, playing the user's
side on the console. Each line you type is delivered to the flow as a
user event; flow output is printed with a leading "<".

Examples:
  convoflow run onboarding
  convoflow run support --user @tester:local`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flowName := args[0]

			flows, err := storage.NewFilesystemFlowRepository(state.cfg.Flows.Dir)
			if err != nil {
				return err
			}
			if _, err := flows.Get(flowName); err != nil {
				return err
			}

			sessions, err := buildSessionStore(state.cfg)
			if err != nil {
				return err
			}
			defer func() { _ = sessions.Close() }()

			eng, err := engine.New(engine.Options{
				Config:      state.cfg,
				Flows:       flows,
				Sessions:    sessions,
				Credentials: storage.NewKeyringCredentialStore(),
				Transport:   NewConsoleTransport(cmd.OutOrStdout()),
				Logger:      state.log,
				IdleTimeout: idleTimeout,
			})
			if err != nil {
				return err
			}
			defer eng.Close()

			ctx := cmd.Context()
			fmt.Fprintf(cmd.OutOrStdout(), "Running flow %q as %s. Type /quit to exit.\n", flowName, userID)

			// Kick the flow with an empty event so it runs up to its first
			// input node before the user types anything.
			if err := eng.HandleEvent(ctx, userID, flowName, ""); err != nil {
				return err
			}

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				line := scanner.Text()
				if line == "/quit" {
					break
				}
				if err := eng.HandleEvent(ctx, userID, flowName, line); err != nil {
					state.log.Error().Err(err).Msg("event handling failed")
				}
			}
			return scanner.Err()
		},
	}

	cmd.Flags().StringVar(&userID, "user", "@console:local", "User ID to run the session as")
	cmd.Flags().DurationVar(&idleTimeout, "idle-timeout", 0, "End sessions parked on input longer than this (0 disables)")

	return cmd
}

// newListCommand creates the list subcommand.
func newListCommand(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List flows in the configured flows directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flows, err := storage.NewFilesystemFlowRepository(state.cfg.Flows.Dir)
			if err != nil {
				return err
			}
			names, err := flows.List()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No flows found in %s.\n", state.cfg.Flows.Dir)
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

// buildSessionStore constructs the session store selected by config.
func buildSessionStore(cfg *config.Config) (storage.SessionStore, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return storage.NewMemorySessionStore(), nil
	case "redis":
		return storage.NewRedisSessionStore(cfg.Storage.RedisURL, 0)
	case "sqlite":
		return storage.NewSQLiteSessionStore(cfg.Storage.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}
