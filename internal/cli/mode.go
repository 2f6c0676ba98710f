package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pygillier/nightswitch/internal/domain/entity"
)

// NewSetCmd creates the set command for manual theme selection.
func NewSetCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "set dark|light",
		Short: "Apply a theme now and switch to manual mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			variant, err := entity.ParseVariant(args[0])
			if err != nil {
				return err
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			result, err := c.SetManual(cmd.Context(), variant)
			if err != nil {
				return err
			}
			return printModeResult(result, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit raw JSON for scripting")
	return cmd
}

// NewToggleCmd creates the toggle command.
func NewToggleCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "toggle",
		Short: "Flip the current theme and switch to manual mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			result, err := c.Toggle(cmd.Context())
			if err != nil {
				return err
			}
			return printModeResult(result, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit raw JSON for scripting")
	return cmd
}

// NewScheduleCmd creates the schedule command.
func NewScheduleCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "schedule <darkAt> <lightAt>",
		Short: "Switch themes at fixed times every day",
		Long: `Switch to schedule mode: the theme turns dark at darkAt and light at
lightAt, both HH:MM in local time, every day. The two times must
differ.`,
		Example: "  nightswitch schedule 19:30 06:45",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			darkAt, err := entity.ParseTimeOfDay(args[0])
			if err != nil {
				return fmt.Errorf("darkAt: %w", err)
			}
			lightAt, err := entity.ParseTimeOfDay(args[1])
			if err != nil {
				return fmt.Errorf("lightAt: %w", err)
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			result, err := c.SetSchedule(cmd.Context(), darkAt, lightAt)
			if err != nil {
				return err
			}
			return printModeResult(result, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit raw JSON for scripting")
	return cmd
}

// NewLocationCmd creates the location command.
func NewLocationCmd() *cobra.Command {
	var (
		asJSON bool
		lat    float64
		lon    float64
	)

	cmd := &cobra.Command{
		Use:   "location",
		Short: "Switch themes at sunrise and sunset",
		Long: `Switch to location mode: the theme turns light at sunrise and dark at
sunset for the daemon's coordinate. Pass --lat and --lon to pin a
coordinate; without them the daemon resolves one itself.`,
		Example: "  nightswitch location --lat 48.8566 --lon 2.3522",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			latSet := cmd.Flags().Changed("lat")
			lonSet := cmd.Flags().Changed("lon")
			if latSet != lonSet {
				return fmt.Errorf("%w: --lat and --lon must be given together", entity.ErrInvalidConfig)
			}

			var override *entity.Coordinate
			if latSet {
				override = &entity.Coordinate{Latitude: lat, Longitude: lon}
				if err := override.Validate(); err != nil {
					return err
				}
			}

			c, err := newClient()
			if err != nil {
				return err
			}
			result, err := c.SetLocation(cmd.Context(), override)
			if err != nil {
				return err
			}
			return printModeResult(result, asJSON)
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude in decimal degrees")
	cmd.Flags().Float64Var(&lon, "lon", 0, "Longitude in decimal degrees")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit raw JSON for scripting")
	return cmd
}

// NewOffCmd creates the off command.
func NewOffCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "off",
		Short: "Disable automatic switching, keeping the current theme",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			result, err := c.Disable(cmd.Context())
			if err != nil {
				return err
			}
			return printModeResult(result, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit raw JSON for scripting")
	return cmd
}
