// Package cli wires configuration, storage and the session into the
// branchdesk commands.
package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/fragmede/branchdesk/internal/monitor"
	"github.com/fragmede/branchdesk/internal/ui"
)

const appName = "branchdesk"

// NewRootCmd builds the command tree. With no subcommand it starts the TUI.
func NewRootCmd(version string) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Terminal client for the IEEE student branch site",
		Long: `branchdesk keeps you logged in to the student branch site from the
terminal: join the chapter, follow announcements, manage your profile and,
for admins, run the admin dashboard.

Run without a subcommand to open the interactive interface.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := opts.open()
			if err != nil {
				return err
			}
			defer d.close()
			return runTUI(d)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file path (YAML)")
	pf.StringVar(&opts.apiURL, "api-url", "", "chapter API base URL")
	pf.StringVar(&opts.dataDir, "data-dir", "", "directory for the cache, token store and log")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.BoolVar(&opts.ephemeral, "ephemeral", false, "keep the session in memory only")

	cmd.AddCommand(
		newLoginCmd(opts),
		newRegisterCmd(opts),
		newVerifyCmd(opts),
		newResendCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newRefreshCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, version)
			},
		},
	)
	return cmd
}

func runTUI(d *deps) error {
	var mon *monitor.Monitor
	if d.cfg.Monitor.Enabled {
		mon = monitor.New(d.client, d.session, d.db, d.cfg.Monitor.Interval, d.log.Logger)
	}

	app := ui.NewApp(d.cfg, d.client, d.db, d.session, mon)
	p := tea.NewProgram(app, tea.WithAltScreen())
	app.SetProgram(p)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running interface: %w", err)
	}
	return nil
}
