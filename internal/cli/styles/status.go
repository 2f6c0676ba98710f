package styles

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// StatusRenderer renders a daemon status snapshot for humans.
type StatusRenderer struct {
	theme *Theme
}

// NewStatusRenderer creates a status renderer with the given theme.
func NewStatusRenderer(theme *Theme) *StatusRenderer {
	return &StatusRenderer{theme: theme}
}

// StatusReport is the view model rendered by StatusRenderer. The CLI
// maps the daemon's status payload onto it.
type StatusReport struct {
	Mode          string
	CurrentTheme  string
	Transitioning bool

	NextTarget  string
	NextFiresAt time.Time

	ScheduleDarkAt  string
	ScheduleLightAt string

	Latitude  *float64
	Longitude *float64
	Sunrise   time.Time
	Sunset    time.Time

	Backend   string
	LastError string
	Warning   string
}

// Render formats the report as a bordered block.
func (r *StatusRenderer) Render(report StatusReport) string {
	lines := []string{
		r.renderHeader(report),
		r.row("Mode", r.modeLabel(report.Mode)),
	}

	if report.NextTarget != "" && !report.NextFiresAt.IsZero() {
		next := fmt.Sprintf("%s %s %s",
			r.theme.Normal.Render(report.NextFiresAt.Local().Format("Mon 15:04")),
			r.theme.Subtle.Render(IconArrow),
			r.themeLabel(report.NextTarget))
		lines = append(lines, r.row("Next", next))
	}

	switch report.Mode {
	case "schedule":
		lines = append(lines, r.row("Boundaries", fmt.Sprintf("%s %s / %s %s",
			IconMoon, report.ScheduleDarkAt, IconSun, report.ScheduleLightAt)))
	case "location":
		if report.Latitude != nil && report.Longitude != nil {
			lines = append(lines, r.row("Coordinate",
				fmt.Sprintf("%.4f, %.4f", *report.Latitude, *report.Longitude)))
		}
		if !report.Sunrise.IsZero() && !report.Sunset.IsZero() {
			lines = append(lines, r.row("Sun times", fmt.Sprintf("%s %s / %s %s",
				IconSun, report.Sunrise.Local().Format("15:04"),
				IconMoon, report.Sunset.Local().Format("15:04"))))
		}
	}

	if report.Backend != "" {
		lines = append(lines, r.row("Applier", r.theme.Subtle.Render(report.Backend)))
	}
	if report.LastError != "" {
		lines = append(lines, r.row("Last error", r.theme.ErrorStyle.Render(report.LastError)))
	}
	if report.Warning != "" {
		lines = append(lines, r.row("Warning", r.theme.WarningStyle.Render(report.Warning)))
	}

	return r.theme.Box.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (r *StatusRenderer) renderHeader(report StatusReport) string {
	badge := r.theme.Badge.Render(r.themeLabel(report.CurrentTheme))
	header := fmt.Sprintf("%s  %s", r.theme.Title.Render("nightswitch"), badge)
	if report.Transitioning {
		header += "  " + r.theme.Subtle.Render("(applying)")
	}
	return header
}

func (r *StatusRenderer) row(label, value string) string {
	return fmt.Sprintf("%s %s", r.theme.Subtle.Render(fmt.Sprintf("%-11s", label+":")), value)
}

func (r *StatusRenderer) themeLabel(variant string) string {
	switch variant {
	case "dark":
		return IconMoon + " dark"
	case "light":
		return IconSun + " light"
	default:
		return variant
	}
}

func (r *StatusRenderer) modeLabel(mode string) string {
	switch mode {
	case "manual":
		return IconHand + " manual"
	case "schedule":
		return IconClock + " schedule"
	case "location":
		return IconLocation + " location"
	default:
		return mode
	}
}

// RenderEvent formats one notification stream event as a single line.
func (r *StatusRenderer) RenderEvent(when time.Time, level, code, message string, detail map[string]string) string {
	var levelStyle lipgloss.Style
	var icon string
	switch level {
	case "error":
		levelStyle, icon = r.theme.ErrorStyle, IconX
	case "warn":
		levelStyle, icon = r.theme.WarningStyle, IconWarning
	default:
		levelStyle, icon = r.theme.SuccessStyle, IconInfo
	}

	line := fmt.Sprintf("%s %s %s %s",
		r.theme.Subtle.Render(when.Local().Format("15:04:05")),
		levelStyle.Render(icon),
		r.theme.BadgeMuted.Render(code),
		r.theme.Normal.Render(message))
	if len(detail) > 0 {
		pairs := make([]string, 0, len(detail))
		for k, v := range detail {
			pairs = append(pairs, k+"="+v)
		}
		sort.Strings(pairs)
		line += " " + r.theme.Subtle.Render(strings.Join(pairs, " "))
	}
	return line
}
