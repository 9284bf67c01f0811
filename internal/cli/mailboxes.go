package cli

import (
	"fmt"

	"inboxsweep/internal/config"
	"inboxsweep/internal/imap"

	"github.com/spf13/cobra"
)

func newFoldersCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folders",
		Short: "List the folders on the IMAP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if err := config.ValidateCredential(cfg); err != nil {
				return err
			}
			if err := config.ValidateIMAP(cfg); err != nil {
				return err
			}

			folders, err := imap.NewService().ListMailboxes(cfg)
			if err != nil {
				return err
			}

			configured := make(map[string]bool, len(cfg.Cleanup.Folders))
			for _, name := range cfg.Cleanup.Folders {
				configured[name] = true
			}
			for _, name := range folders {
				marker := " "
				if configured[name] {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, name)
			}
			return nil
		},
	}
	return cmd
}
