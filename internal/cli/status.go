package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pygillier/nightswitch/internal/cli/styles"
	"github.com/pygillier/nightswitch/internal/server"
	"github.com/pygillier/nightswitch/internal/services"
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the daemon's current mode and theme",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			status, err := c.Status(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(status)
			}
			fmt.Println(renderStatus(status, ""))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit raw JSON for scripting")
	return cmd
}

// NewWatchCmd creates the watch command, which streams daemon events
// until interrupted.
func NewWatchCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream daemon events (theme changes, failures)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			events, err := c.Watch(cmd.Context())
			if err != nil {
				return err
			}

			renderer := styles.NewStatusRenderer(styles.NewTheme())
			enc := json.NewEncoder(os.Stdout)
			for ev := range events {
				if asJSON {
					if err := enc.Encode(ev); err != nil {
						return err
					}
					continue
				}
				fmt.Println(renderer.RenderEvent(ev.Time, string(ev.Level), string(ev.Code), ev.Message, ev.Detail))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit one JSON event per line")
	return cmd
}

// renderStatus maps a daemon status onto the lipgloss renderer.
func renderStatus(status services.Status, warning string) string {
	report := styles.StatusReport{
		Mode:            status.Mode.String(),
		CurrentTheme:    status.CurrentTheme.String(),
		Transitioning:   status.Transitioning,
		ScheduleDarkAt:  status.Schedule.DarkAt.String(),
		ScheduleLightAt: status.Schedule.LightAt.String(),
		Backend:         status.Backend,
		LastError:       status.LastError,
		Warning:         warning,
	}
	if status.NextTransition != nil {
		report.NextTarget = status.NextTransition.Target.String()
		report.NextFiresAt = status.NextTransition.FiresAt
	}
	if status.Location != nil {
		report.Latitude = &status.Location.Coordinate.Latitude
		report.Longitude = &status.Location.Coordinate.Longitude
	}
	if status.SunTimes != nil {
		report.Sunrise = status.SunTimes.Sunrise
		report.Sunset = status.SunTimes.Sunset
	}
	return styles.NewStatusRenderer(styles.NewTheme()).Render(report)
}

// printModeResult renders the status returned by a mode operation,
// surfacing the persistence warning when the state write failed.
func printModeResult(result server.ModeResponse, asJSON bool) error {
	if asJSON {
		return printJSON(result)
	}
	fmt.Println(renderStatus(result.Status, result.Warning))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
