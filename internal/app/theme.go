package app

import (
	"image/color"

	"lightshade/pkg/colorutil"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// LightShadeTheme tints the default theme with the classification palette.
type LightShadeTheme struct{}

var _ fyne.Theme = (*LightShadeTheme)(nil)

func (t *LightShadeTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary, theme.ColorNameFocus:
		if variant == theme.VariantDark {
			return colorutil.Green
		}
		return colorutil.DarkGreen
	case theme.ColorNameSelection:
		return withAlpha(colorutil.Yellow, 0x80)
	case theme.ColorNameSuccess:
		return colorutil.Green
	case theme.ColorNameWarning:
		return colorutil.Yellow
	case theme.ColorNameScrollBar:
		return withAlpha(colorutil.Gray, 0xc0)
	default:
		return theme.DefaultTheme().Color(name, variant)
	}
}

func withAlpha(c color.NRGBA, a uint8) color.NRGBA {
	c.A = a
	return c
}

func (t *LightShadeTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *LightShadeTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *LightShadeTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameScrollBar:
		return 12
	default:
		return theme.DefaultTheme().Size(name)
	}
}
