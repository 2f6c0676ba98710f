// Package applier pushes a theme variant to the desktop. Backends are
// thin glue over desktop-specific mechanisms; which one runs is chosen
// by configuration, not by probing desktop internals at every switch.
package applier

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/pygillier/nightswitch/internal/application/port"
	"github.com/pygillier/nightswitch/internal/domain/entity"
)

// Backend identifiers, mirrored in the applier section of the config
// file.
const (
	BackendAuto      = "auto"
	BackendGSettings = "gsettings"
	BackendPortal    = "portal"
	BackendCommand   = "command"
)

// Options parameterizes backend construction.
type Options struct {
	// Backend is one of the Backend* constants. BackendAuto picks the
	// first available backend.
	Backend string
	// DarkCommand and LightCommand drive the command backend.
	DarkCommand  string
	LightCommand string
	// GTKTheme overrides the gtk-theme base name used by the gsettings
	// backend; empty keeps Adwaita.
	GTKTheme string
}

// runFunc executes an external command and returns its combined
// output. A seam for tests.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// New returns the applier selected by opts. A forced backend that is
// not available is an error; BackendAuto tries gsettings, then command,
// then portal.
func New(opts Options) (port.ThemeApplier, error) {
	switch opts.Backend {
	case BackendGSettings:
		return requireAvailable(NewGSettings(opts.GTKTheme))
	case BackendPortal:
		return requireAvailable(NewPortal())
	case BackendCommand:
		return requireAvailable(NewCommand(opts.DarkCommand, opts.LightCommand))
	case "", BackendAuto:
		candidates := []port.ThemeApplier{
			NewGSettings(opts.GTKTheme),
			NewCommand(opts.DarkCommand, opts.LightCommand),
			NewPortal(),
		}
		for _, a := range candidates {
			if a.Available() {
				return a, nil
			}
		}
		return nil, fmt.Errorf("%w: no theme applier available (install gsettings or configure applier commands)", entity.ErrApply)
	default:
		return nil, fmt.Errorf("%w: unknown applier backend %q", entity.ErrInvalidConfig, opts.Backend)
	}
}

func requireAvailable(a port.ThemeApplier) (port.ThemeApplier, error) {
	if !a.Available() {
		return nil, fmt.Errorf("%w: applier backend %q is not available on this system", entity.ErrApply, a.Name())
	}
	return a, nil
}
