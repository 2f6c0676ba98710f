package styles

// Nerd Font icons (requires a Nerd Font to display correctly)
const (
	IconMoon     = "" // moon (dark theme)
	IconSun      = "" // sun (light theme)
	IconClock    = "" // clock (schedule mode)
	IconLocation = "" // location-arrow (location mode)
	IconHand     = "" // hand (manual mode)
	IconArrow    = "" // arrow right
	IconVersion  = "" // tag
	IconWarning  = "" // warning
	IconCheck    = "" // check
	IconX        = "" // x
	IconInfo     = "" // info
	IconConfig   = "" // config
)
