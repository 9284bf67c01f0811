package cli

import (
	"inboxsweep/internal/cleanup"
	"inboxsweep/internal/config"
	"inboxsweep/internal/imap"
	"inboxsweep/internal/journal"
	"inboxsweep/internal/smtp"

	"github.com/spf13/cobra"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var (
		dryRun        bool
		noReport      bool
		thresholdDays int
		folders       []string
		expungePolicy string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Delete matching messages from the configured folders and email a report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("threshold-days") {
				cfg.Cleanup.ThresholdDays = thresholdDays
			}
			if cmd.Flags().Changed("folder") {
				cfg.Cleanup.Folders = folders
			}
			if cmd.Flags().Changed("expunge-policy") {
				cfg.Cleanup.ExpungePolicy = expungePolicy
			}
			if noReport {
				cfg.Report.Enabled = false
			}

			// A missing credential is reported by the runner before any
			// connection; other config errors are usage errors.
			if config.ValidateCredential(cfg) == nil {
				if err := config.Validate(cfg); err != nil {
					return err
				}
			}

			log := newLogger(cmd.ErrOrStderr(), opts.verbose)
			runner := &cleanup.Runner{
				Config:  cfg,
				DryRun:  dryRun,
				Open:    openMailbox,
				Send:    smtp.SendReport,
				Journal: journal.New(cfg.Cleanup.LogFile),
				Log:     log,
				Out:     cmd.OutOrStdout(),
			}
			if _, err := runner.Run(); err != nil {
				log.Error("cleanup run ended early", "error", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report matches without flagging or expunging")
	cmd.Flags().BoolVar(&noReport, "no-report", false, "Skip the report email")
	cmd.Flags().IntVar(&thresholdDays, "threshold-days", 30, "Only delete messages delivered more than this many days ago")
	cmd.Flags().StringSliceVar(&folders, "folder", nil, "Folder to clean (repeatable, replaces cleanup.folders)")
	cmd.Flags().StringVar(&expungePolicy, "expunge-policy", config.ExpungeCumulative, "cumulative or per-folder")

	return cmd
}

func openMailbox(cfg config.Config) (cleanup.MailboxSession, error) {
	session, err := imap.NewService().Open(cfg)
	if err != nil {
		return nil, err
	}
	return session, nil
}
