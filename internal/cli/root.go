// Package cli provides the command-line interface for nightswitch.
// Every command except "daemon" talks to a running daemon over its
// unix control socket.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pygillier/nightswitch/internal/cli/styles"
	"github.com/pygillier/nightswitch/internal/client"
	"github.com/pygillier/nightswitch/internal/config"
)

// NewRootCmd creates the root command for nightswitch.
func NewRootCmd(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nightswitch",
		Short: "Dark/light theme switching for Linux desktops",
		Long: `Switches the desktop between dark and light themes on user command,
on a fixed daily schedule, or at sunrise and sunset for a location.

The "daemon" command runs the switching service; every other command
controls a running daemon.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			theme := styles.NewTheme()
			fmt.Printf("%s %s\n", theme.Title.Render("nightswitch"), theme.Highlight.Render(version))
			fmt.Printf("%s commit: %s\n", theme.Subtle.Render(styles.IconVersion), commit)
			fmt.Printf("%s built:  %s\n", theme.Subtle.Render(styles.IconVersion), buildDate)
		},
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(NewDaemonCmd(version, commit, buildDate))
	rootCmd.AddCommand(NewStatusCmd())
	rootCmd.AddCommand(NewSetCmd())
	rootCmd.AddCommand(NewToggleCmd())
	rootCmd.AddCommand(NewScheduleCmd())
	rootCmd.AddCommand(NewLocationCmd())
	rootCmd.AddCommand(NewOffCmd())
	rootCmd.AddCommand(NewWatchCmd())
	rootCmd.AddCommand(NewConfigCmd())

	return rootCmd
}

// newClient resolves the control socket path and returns a client for
// it. The config file can override the socket location, so it is
// loaded first; a missing or broken config still yields the default
// XDG runtime path.
func newClient() (*client.Client, error) {
	if err := config.Init(); err == nil {
		return client.New(config.Get().Server.SocketPath), nil
	}
	socketPath, err := config.GetSocketFile()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve control socket path: %w", err)
	}
	return client.New(socketPath), nil
}
