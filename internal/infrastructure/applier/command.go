package applier

import (
	"context"
	"fmt"
	"strings"

	"github.com/pygillier/nightswitch/internal/domain/entity"
)

// Command runs a user-configured shell command per variant, for
// desktops nightswitch has no dedicated backend for (KDE's
// plasma-apply-colorscheme, custom scripts, ...).
type Command struct {
	dark  string
	light string
	run   runFunc
}

// NewCommand creates the command backend.
func NewCommand(dark, light string) *Command {
	return &Command{dark: dark, light: light, run: execRun}
}

// Name implements port.ThemeApplier.
func (*Command) Name() string { return BackendCommand }

// Available reports whether both commands are configured.
func (c *Command) Available() bool {
	return c.dark != "" && c.light != ""
}

// Apply runs the command for the variant through the shell. The
// configured command is responsible for being idempotent; theme-set
// commands generally are.
func (c *Command) Apply(ctx context.Context, variant entity.Variant) error {
	var command string
	switch variant {
	case entity.VariantDark:
		command = c.dark
	case entity.VariantLight:
		command = c.light
	default:
		return fmt.Errorf("%w: unknown theme %q", entity.ErrApply, variant)
	}
	if command == "" {
		return fmt.Errorf("%w: no command configured for %s theme", entity.ErrApply, variant)
	}

	out, err := c.run(ctx, "sh", "-c", command)
	if err != nil {
		detail := strings.TrimSpace(string(out))
		if detail != "" {
			return fmt.Errorf("%w: %s command: %v: %s", entity.ErrApply, variant, err, detail)
		}
		return fmt.Errorf("%w: %s command: %v", entity.ErrApply, variant, err)
	}
	return nil
}
