package applier

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/pygillier/nightswitch/internal/domain/entity"
)

// Portal writes only the color-scheme key, the preference the
// xdg-desktop-portal settings interface exposes to sandboxed and
// non-GTK applications. Unlike the gsettings backend it leaves
// gtk-theme alone, for desktops where the user manages widget themes
// separately.
type Portal struct {
	run runFunc
}

// NewPortal creates the portal-oriented backend.
func NewPortal() *Portal {
	return &Portal{run: execRun}
}

// Name implements port.ThemeApplier.
func (*Portal) Name() string { return BackendPortal }

// Available reports whether the gsettings binary is on PATH; the
// portal reads its color-scheme value from the same settings backend.
func (*Portal) Available() bool {
	_, err := exec.LookPath("gsettings")
	return err == nil
}

// Apply sets the color-scheme preference for the variant.
func (p *Portal) Apply(ctx context.Context, variant entity.Variant) error {
	if !variant.Valid() {
		return fmt.Errorf("%w: unknown theme %q", entity.ErrApply, variant)
	}

	scheme := schemePreferLight
	if variant == entity.VariantDark {
		scheme = schemePreferDark
	}

	out, err := p.run(ctx, "gsettings", "set", gnomeInterfaceSchema, colorSchemeKey, scheme)
	if err != nil {
		detail := strings.TrimSpace(string(out))
		if detail != "" {
			return fmt.Errorf("%w: set %s: %v: %s", entity.ErrApply, colorSchemeKey, err, detail)
		}
		return fmt.Errorf("%w: set %s: %v", entity.ErrApply, colorSchemeKey, err)
	}
	return nil
}
