package ui

import (
	"image/color"

	"fygallery/internal/prefs"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// galleryTheme wraps an existing theme, pins the light or dark variant and
// reduces padding.
type galleryTheme struct {
	fyne.Theme
	variant fyne.ThemeVariant
}

// Ensure galleryTheme implements fyne.Theme
var _ fyne.Theme = (*galleryTheme)(nil)

// Size overrides the default theme size for padding.
func (t *galleryTheme) Size(name fyne.ThemeSizeName) float32 {
	if name == theme.SizeNamePadding {
		return 2.0
	}
	return t.Theme.Size(name)
}

// Color ignores the requested variant in favor of the pinned one.
func (t *galleryTheme) Color(name fyne.ThemeColorName, _ fyne.ThemeVariant) color.Color {
	return t.Theme.Color(name, t.variant)
}

func (t *galleryTheme) Font(style fyne.TextStyle) fyne.Resource {
	return t.Theme.Font(style)
}

func (t *galleryTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return t.Theme.Icon(name)
}

// NewGalleryTheme creates a theme wrapper showing base in the variant of t.
func NewGalleryTheme(base fyne.Theme, t prefs.Theme) fyne.Theme {
	return &galleryTheme{Theme: base, variant: variantOf(t)}
}

func variantOf(t prefs.Theme) fyne.ThemeVariant {
	if t == prefs.Dark {
		return theme.VariantDark
	}
	return theme.VariantLight
}

// themeButtonLabel names the theme a press switches to.
func themeButtonLabel(current prefs.Theme) string {
	if current == prefs.Dark {
		return "Light mode"
	}
	return "Dark mode"
}

// applyTheme switches the app to the gallery's effective theme.
func (a *App) applyTheme() {
	t := a.gal.Theme()
	a.app.Settings().SetTheme(NewGalleryTheme(theme.DefaultTheme(), t))
	if a.UI.themeBtn != nil {
		a.UI.themeBtn.SetText(themeButtonLabel(t))
	}
}
