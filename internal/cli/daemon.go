package cli

import (
	"github.com/spf13/cobra"

	"github.com/pygillier/nightswitch/internal/daemon"
)

// NewDaemonCmd creates the daemon command, which runs the switching
// service in the foreground until SIGINT/SIGTERM.
func NewDaemonCmd(version, commit, buildDate string) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the theme switching service",
		Long: `Run the nightswitch service in the foreground: restores the persisted
mode, arms the next transition, and serves the control socket. Meant
to be started by a systemd user unit or the desktop session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return daemon.Run(cmd.Context(), daemon.Options{
				Version:   version,
				Commit:    commit,
				BuildDate: buildDate,
			})
		},
	}
}
