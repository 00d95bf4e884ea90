package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/convoflow/convoflow/pkg/storage"
)

// NewCredentialCommand creates the credential management command.
func NewCredentialCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credential",
		Short: "Manage flow credentials",
		Long: `Manage credentials referenced by flows via basic_auth.credential_ref.
Credentials are stored in your system's native credential store (Keychain
on macOS, Credential Manager on Windows, Secret Service on Linux) and
never in plain text files.`,
	}

	cmd.AddCommand(newCredentialSetCommand())
	cmd.AddCommand(newCredentialListCommand())
	cmd.AddCommand(newCredentialRemoveCommand())

	return cmd
}

func newCredentialSetCommand() *cobra.Command {
	var value string

	cmd := &cobra.Command{
		Use:   "set <key>",
		Short: "Store a credential",
		Long: `Store a credential under a key that flows reference with
basic_auth.credential_ref.

Examples:
  # Prompt for the value without echo (recommended)
  convoflow credential set upstream-password

  # Value on the command line (visible in shell history)
  convoflow credential set upstream-password --value secret123`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]

			credValue := value
			if credValue == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Enter value for %q: ", key)
				raw, err := term.ReadPassword(int(os.Stdin.Fd()))
				fmt.Fprintln(cmd.OutOrStdout())
				if err != nil {
					return fmt.Errorf("failed to read credential value: %w", err)
				}
				credValue = string(raw)
			} else {
				fmt.Fprintln(cmd.OutOrStderr(), "Warning: --value exposes the credential in shell history.")
			}

			if strings.TrimSpace(credValue) == "" {
				return fmt.Errorf("credential value cannot be empty")
			}

			store := storage.NewKeyringCredentialStore()
			if err := store.Set(key, credValue); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Credential %q stored.\n", key)
			return nil
		},
	}

	cmd.Flags().StringVarP(&value, "value", "v", "", "Credential value (prompts securely if omitted)")
	return cmd
}

func newCredentialListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored credential keys",
		Long:  "List credential keys. Values are never displayed.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := storage.NewKeyringCredentialStore()
			keys, err := store.List()
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No credentials stored.")
				return nil
			}
			for _, key := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (set)\n", key)
			}
			return nil
		},
	}
}

func newCredentialRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <key>",
		Short: "Remove a stored credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := storage.NewKeyringCredentialStore()
			if err := store.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Credential %q removed.\n", args[0])
			return nil
		},
	}
}
