package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"inboxsweep/internal/secrets"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newAuthCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Credential management",
	}
	cmd.AddCommand(newAuthSetPasswordCmd(opts))
	return cmd
}

func newAuthSetPasswordCmd(opts *rootOptions) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "set-password",
		Short: "Store the app password in the OS keyring (used when auth.keyring is true)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("username") {
				cfg.Auth.Username = username
			}
			if cfg.Auth.Username == "" {
				return fmt.Errorf("auth.username is required")
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "App password for %s: ", cfg.Auth.Username)
			password, err := readPassword(cmd.InOrStdin())
			fmt.Fprintln(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			if err := secrets.NewStore(cfg.Auth.KeyringBackend).SetPassword(cfg.Auth.Username, password); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Password stored.")
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Account address")

	return cmd
}

func readPassword(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		data, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(data), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
