package applier

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/pygillier/nightswitch/internal/domain/entity"
)

const (
	gnomeInterfaceSchema = "org.gnome.desktop.interface"
	colorSchemeKey       = "color-scheme"
	gtkThemeKey          = "gtk-theme"

	schemePreferDark  = "prefer-dark"
	schemePreferLight = "prefer-light"

	defaultGTKTheme = "Adwaita"
	darkThemeSuffix = "-dark"
)

// GSettings switches GNOME-family desktops by writing the
// org.gnome.desktop.interface color-scheme and gtk-theme keys, the
// same keys GNOME's own appearance panel writes.
type GSettings struct {
	gtkTheme string
	run      runFunc
}

// NewGSettings creates the gsettings backend. gtkTheme is the light
// theme base name; the dark variant gets a "-dark" suffix.
func NewGSettings(gtkTheme string) *GSettings {
	if gtkTheme == "" {
		gtkTheme = defaultGTKTheme
	}
	return &GSettings{gtkTheme: gtkTheme, run: execRun}
}

// Name implements port.ThemeApplier.
func (*GSettings) Name() string { return BackendGSettings }

// Available reports whether the gsettings binary is on PATH.
func (*GSettings) Available() bool {
	_, err := exec.LookPath("gsettings")
	return err == nil
}

// Apply sets color-scheme and gtk-theme for the variant. Writing an
// already-set value is a no-op for GSettings, so re-applying is
// harmless.
func (g *GSettings) Apply(ctx context.Context, variant entity.Variant) error {
	if !variant.Valid() {
		return fmt.Errorf("%w: unknown theme %q", entity.ErrApply, variant)
	}

	scheme := schemePreferLight
	theme := g.gtkTheme
	if variant == entity.VariantDark {
		scheme = schemePreferDark
		theme += darkThemeSuffix
	}

	if err := g.set(ctx, colorSchemeKey, scheme); err != nil {
		return err
	}
	return g.set(ctx, gtkThemeKey, theme)
}

func (g *GSettings) set(ctx context.Context, key, value string) error {
	out, err := g.run(ctx, "gsettings", "set", gnomeInterfaceSchema, key, value)
	if err != nil {
		detail := strings.TrimSpace(string(out))
		if detail != "" {
			return fmt.Errorf("%w: set %s: %v: %s", entity.ErrApply, key, err, detail)
		}
		return fmt.Errorf("%w: set %s: %v", entity.ErrApply, key, err)
	}
	return nil
}
