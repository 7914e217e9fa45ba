package theme

import (
	"context"
	"testing"

	"littrfix/dom"
	"littrfix/prefs"

	"github.com/PuerkitoBio/goquery"
)

const settings = `<html><body><div><main>
<span class="sun"></span><input id="nick"><textarea></textarea>
<dialog><table></table></dialog>
</main></div></body></html>`

func TestHex(t *testing.T) {
	c := Hex("#1A2b3C")
	if c != (Color{0x1a, 0x2b, 0x3c}) {
		t.Errorf("unexpected color %+v", c)
	}
	if c.CSS() != "#1a2b3c" {
		t.Errorf("unexpected CSS %q", c.CSS())
	}
	if Hex("bad") != (Color{}) {
		t.Error("short strings should give the zero color")
	}
}

func TestRestoreDefaultsToDark(t *testing.T) {
	d, _ := dom.ParseString(settings)
	mode, err := Restore(context.Background(), d, prefs.NewMemoryStore())
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if mode != Dark {
		t.Errorf("expected dark, got %v", mode)
	}
	d.View(func(doc *goquery.Document) {
		if !doc.Find("body").HasClass("dark") {
			t.Error("body should carry the dark class")
		}
		if got := dom.Style(doc.Find(".sun").Get(0), "background-color"); got != "#000000" {
			t.Errorf("expected dark sun, got %q", got)
		}
	})
}

func TestRestoreLight(t *testing.T) {
	store := prefs.NewMemoryStore()
	store.Set(context.Background(), LightModeKey, "1")

	d, _ := dom.ParseString(settings)
	mode, err := Restore(context.Background(), d, store)
	if err != nil || mode != Light {
		t.Fatalf("expected light, got %v (%v)", mode, err)
	}
	d.View(func(doc *goquery.Document) {
		if doc.Find("body").HasClass("dark") {
			t.Error("body should not be dark")
		}
	})
}

func TestToggle(t *testing.T) {
	ctx := context.Background()
	store := prefs.NewMemoryStore()
	d, _ := dom.ParseString(settings)
	Restore(ctx, d, store)

	mode, err := Toggle(ctx, d, store)
	if err != nil || mode != Light {
		t.Fatalf("expected light, got %v (%v)", mode, err)
	}
	if ok, _ := prefs.Has(ctx, store, LightModeKey); !ok {
		t.Error("light mode should be persisted")
	}
	d.View(func(doc *goquery.Document) {
		if got := dom.Style(doc.Find(".sun").Get(0), "background-color"); got != "#ffffff" {
			t.Errorf("expected light sun, got %q", got)
		}
		if got := dom.Style(doc.Find("#nick").Get(0), "color"); got != "#888888" {
			t.Errorf("expected input color, got %q", got)
		}
	})

	mode, _ = Toggle(ctx, d, store)
	if mode != Dark {
		t.Errorf("expected dark, got %v", mode)
	}
	if ok, _ := prefs.Has(ctx, store, LightModeKey); ok {
		t.Error("dark mode should clear the preference")
	}
}

func TestToggleWithoutStore(t *testing.T) {
	d, _ := dom.ParseString(settings)
	if mode, err := Toggle(context.Background(), d, nil); err != nil || mode != Dark {
		t.Errorf("page without dark class should toggle to dark, got %v (%v)", mode, err)
	}
}

func TestFixColorsIdempotent(t *testing.T) {
	d, _ := dom.ParseString(settings)
	d.Update(func(doc *goquery.Document) { FixColors(doc) })
	first, _ := d.HTML()
	d.Update(func(doc *goquery.Document) { FixColors(doc) })
	second, _ := d.HTML()
	if first != second {
		t.Errorf("FixColors should be idempotent\nfirst:  %s\nsecond: %s", first, second)
	}
}
