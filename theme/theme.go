// Package theme switches pages between the dark and light colour modes.
package theme

import (
	"context"
	"fmt"

	"littrfix/dom"
	"littrfix/prefs"

	"github.com/PuerkitoBio/goquery"
)

// LightModeKey is the preference set while the light mode is chosen.
// Its absence means dark, the default.
const LightModeKey = "lightmode"

// darkClass on <body> selects the dark mode.
const darkClass = "dark"

// Mode is a colour mode.
type Mode int

const (
	Dark Mode = iota
	Light
)

func (m Mode) String() string {
	if m == Light {
		return "light"
	}
	return "dark"
}

// Color represents an RGB color.
type Color struct {
	R, G, B uint8
}

// CSS formats the color as #rrggbb.
func (c Color) CSS() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Hex creates a Color from a hex string like "#RRGGBB" or "RRGGBB".
func Hex(s string) Color {
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}
	if len(s) != 6 {
		return Color{}
	}
	return Color{
		R: hexByte(s[0:2]),
		G: hexByte(s[2:4]),
		B: hexByte(s[4:6]),
	}
}

func hexByte(s string) uint8 {
	var v uint8
	for _, c := range s {
		v *= 16
		switch {
		case c >= '0' && c <= '9':
			v += uint8(c - '0')
		case c >= 'a' && c <= 'f':
			v += uint8(c - 'a' + 10)
		case c >= 'A' && c <= 'F':
			v += uint8(c - 'A' + 10)
		}
	}
	return v
}

// Palette is the set of inline colours applied for a mode.
type Palette struct {
	Mode        Mode
	Sun         Color // background of the mode switch icon
	Input       Color // text in inputs and textareas
	DialogTable Color // text of tables inside dialogs
}

// Built-in palettes
var (
	DarkPalette = &Palette{
		Mode:        Dark,
		Sun:         Hex("000000"),
		Input:       Hex("888888"),
		DialogTable: Hex("ffffff"),
	}

	LightPalette = &Palette{
		Mode:        Light,
		Sun:         Hex("ffffff"),
		Input:       Hex("888888"),
		DialogTable: Hex("ffffff"),
	}
)

// For returns the palette of mode m.
func For(m Mode) *Palette {
	if m == Light {
		return LightPalette
	}
	return DarkPalette
}

// Current reads the mode from the body class.
func Current(doc *goquery.Document) Mode {
	if doc.Find("body").HasClass(darkClass) {
		return Dark
	}
	return Light
}

// Set switches the body class to mode m.
func Set(doc *goquery.Document, m Mode) {
	body := doc.Find("body")
	if m == Dark {
		body.AddClass(darkClass)
	} else {
		body.RemoveClass(darkClass)
	}
}

// FixColors applies the palette of the current mode. Applying it twice is
// the same as applying it once.
func FixColors(doc *goquery.Document) {
	p := For(Current(doc))
	dom.SetStyle(doc.Find(".sun"), "background-color", p.Sun.CSS())
	dom.SetStyle(doc.Find("textarea,input"), "color", p.Input.CSS())
	dom.SetStyle(doc.Find("dialog > table"), "color", p.DialogTable.CSS())
}

// Restore applies the persisted mode to a freshly loaded page.
func Restore(ctx context.Context, d *dom.Document, store prefs.Store) (Mode, error) {
	mode := Dark
	if store != nil {
		light, err := prefs.Has(ctx, store, LightModeKey)
		if err != nil {
			return Dark, fmt.Errorf("reading mode preference: %w", err)
		}
		if light {
			mode = Light
		}
	}
	d.Update(func(doc *goquery.Document) {
		Set(doc, mode)
		FixColors(doc)
	})
	return mode, nil
}

// Toggle flips the mode, persists the choice and reapplies colours.
func Toggle(ctx context.Context, d *dom.Document, store prefs.Store) (Mode, error) {
	var mode Mode
	d.Update(func(doc *goquery.Document) {
		mode = Dark
		if Current(doc) == Dark {
			mode = Light
		}
		Set(doc, mode)
		FixColors(doc)
	})

	if store == nil {
		return mode, nil
	}
	var err error
	if mode == Light {
		err = store.Set(ctx, LightModeKey, "1")
	} else {
		err = store.Delete(ctx, LightModeKey)
	}
	if err != nil {
		return mode, fmt.Errorf("saving mode preference: %w", err)
	}
	return mode, nil
}
