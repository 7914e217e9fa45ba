// Package fixer patches a rendered littr page after every re-render: it
// annotates posts, applies cosmetic fixups and wires page interactions once
// per render.
package fixer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"littrfix/annotate"
	"littrfix/autofill"
	"littrfix/dom"
	"littrfix/prefs"
	"littrfix/share"
	"littrfix/theme"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// FixedKey is the data key set on <main> once one-time work is done for it.
const FixedKey = "fixedUI"

// offlineBadge is the hidden placeholder network.Apply shows while offline.
const offlineBadge = `<span class="offline" style="display: none;"></span>`

// Wired feature names, as reported in CycleResult.Wired.
const (
	FeatureAutofill = "autofill"
	FeatureMode     = "mode-switch"
	FeatureShare    = "share"
	FeatureSubmit   = "submit"
)

// Scroller scrolls the page back to the top.
type Scroller interface {
	ScrollTop()
}

// Capabilities are the optional platform features the fixer can use.
// A nil field means the platform lacks that feature.
type Capabilities struct {
	Sharer   share.Sharer
	Scroller Scroller
	Prefs    prefs.Store
	Clock    func() time.Time
}

// Tab links a bottom navigation entry to the table whose page it opens.
type Tab struct {
	Name  string
	Table string
	Link  string
}

// Options select what the fixer touches.
type Options struct {
	Routes   annotate.Routes
	Annotate annotate.Selectors
	Sanitize bool
	Login    autofill.Selectors

	Tabs            []Tab
	ShareTarget     string
	ModeSwitch      string
	SettingsHeading string

	// Location is the page URL, used when sharing a page without a
	// canonical link.
	Location string
}

// DefaultOptions returns the selectors of the littr front end.
func DefaultOptions() Options {
	return Options{
		Routes:   annotate.DefaultRoutes(),
		Annotate: annotate.DefaultSelectors(),
		Login:    autofill.DefaultSelectors(),
		Tabs: []Tab{
			{Name: "stats", Table: "#table-stats-flow", Link: "#nav-bottom > a:nth-child(1)"},
			{Name: "users", Table: "#table-users", Link: "#nav-bottom > a:nth-child(2)"},
			{Name: "polls", Table: "#table-poll", Link: "#nav-bottom > a:nth-child(4)"},
			{Name: "flow", Table: "#table-flow", Link: "#nav-bottom > a:nth-child(5)"},
		},
		ShareTarget:     "#nav-top > dialog > img",
		ModeSwitch:      "#dark-mode-switch",
		SettingsHeading: "littr settings",
	}
}

type tab struct {
	name        string
	table, link cascadia.Selector
}

// Fixer runs fixup cycles against documents.
type Fixer struct {
	opts      Options
	caps      Capabilities
	logger    *zap.Logger
	annotator *annotate.Annotator

	tabs        []tab
	shareTarget cascadia.Selector
	modeSwitch  cascadia.Selector
	username    cascadia.Selector
	password    cascadia.Selector
}

// New compiles the option selectors and returns a Fixer.
func New(opts Options, caps Capabilities, logger *zap.Logger) (*Fixer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if caps.Clock == nil {
		caps.Clock = time.Now
	}

	a, err := annotate.New(opts.Routes, opts.Annotate, opts.Sanitize)
	if err != nil {
		return nil, err
	}
	f := &Fixer{opts: opts, caps: caps, logger: logger, annotator: a}

	compile := func(s string) (cascadia.Selector, error) {
		sel, err := cascadia.Compile(s)
		if err != nil {
			return nil, fmt.Errorf("compiling selector %q: %w", s, err)
		}
		return sel, nil
	}
	for _, t := range opts.Tabs {
		table, err := compile(t.Table)
		if err != nil {
			return nil, err
		}
		link, err := compile(t.Link)
		if err != nil {
			return nil, err
		}
		f.tabs = append(f.tabs, tab{name: t.Name, table: table, link: link})
	}
	if f.shareTarget, err = compile(opts.ShareTarget); err != nil {
		return nil, err
	}
	if f.modeSwitch, err = compile(opts.ModeSwitch); err != nil {
		return nil, err
	}
	if f.username, err = compile(opts.Login.Username); err != nil {
		return nil, err
	}
	if f.password, err = compile(opts.Login.Password); err != nil {
		return nil, err
	}
	return f, nil
}

// Capabilities returns the capabilities the fixer was built with.
func (f *Fixer) Capabilities() Capabilities {
	return f.caps
}

// CycleResult summarises what one cycle did.
type CycleResult struct {
	Annotations annotate.Result

	// AlreadyFixed is set when <main> carried the marker and one-time
	// work was skipped.
	AlreadyFixed bool

	// Wired lists the features that got handlers in this cycle.
	Wired []string
}

// RunCycle runs one fixup cycle on d for the render described by pc.
// Missing targets are skipped; a cycle never fails.
func (f *Fixer) RunCycle(ctx context.Context, d *dom.Document, pc *Context) CycleResult {
	var res CycleResult
	if ctx.Err() != nil || pc.Done() {
		return res
	}
	pc.countCycle()

	var main *html.Node
	d.Update(func(doc *goquery.Document) {
		res.Annotations = f.annotator.Run(doc.Selection)

		dom.SetStyle(doc.Find("#table-users p.bold"), "cursor", "pointer")
		doc.Find("#table-stats-flow,#table-users,#table-poll").AddClass("sortable")
		theme.FixColors(doc)

		if m := doc.Find("main").First(); m.Length() > 0 {
			main = m.Get(0)
		}
	})

	if main != nil {
		if d.Flag(main, FixedKey) {
			res.AlreadyFixed = true
			return res
		}
		d.SetData(main, FixedKey, true)
	}

	d.Update(func(doc *goquery.Document) {
		m := doc.Find("body > div > main").First()
		if m.Length() > 0 && m.Find("span.offline").Length() == 0 {
			m.PrependHtml(offlineBadge)
		}
		dom.SetStyle(doc.Find("table"), "padding-bottom", "2rem")
	})

	res.Wired = f.wire(d, pc)
	if res.Annotations.Changed() || len(res.Wired) > 0 {
		pc.Logger.Debug("fixup cycle",
			zap.Int("text", res.Annotations.Text),
			zap.Int("images", res.Annotations.Images),
			zap.Int("cleared", res.Annotations.Cleared),
			zap.Strings("wired", res.Wired))
	}
	return res
}

func (f *Fixer) first(d *dom.Document, sel cascadia.Selector) *html.Node {
	var n *html.Node
	d.View(func(doc *goquery.Document) {
		if s := doc.FindMatcher(sel).First(); s.Length() > 0 {
			n = s.Get(0)
		}
	})
	return n
}

// wire attaches the interaction handlers of the page. Each feature is bound
// at most once per target node in a render.
func (f *Fixer) wire(d *dom.Document, pc *Context) []string {
	var wired []string

	if u, p := f.first(d, f.username), f.first(d, f.password); u != nil && p != nil {
		if pc.claim(FeatureAutofill, u) {
			autofill.Wire(d, f.opts.Login, pc.autofill)
			wired = append(wired, FeatureAutofill)
		}
	}

	if f.settingsPage(d) {
		if n := f.first(d, f.modeSwitch); n != nil && pc.claim(FeatureMode, n) {
			d.On(n, dom.EventClick, func(dom.Event) {
				mode, err := theme.Toggle(pc.Ctx(), d, f.caps.Prefs)
				if err != nil {
					pc.Logger.Warn("toggling mode", zap.Error(err))
					return
				}
				pc.Logger.Info("mode switched", zap.Stringer("mode", mode))
			})
			wired = append(wired, FeatureMode)
		}
	}

	var scroller Scroller = d.Viewport
	if f.caps.Scroller != nil {
		scroller = f.caps.Scroller
	}
	for _, t := range f.tabs {
		if f.first(d, t.table) == nil {
			continue
		}
		link := f.first(d, t.link)
		if link == nil || !pc.claim("tab:"+t.name, link) {
			continue
		}
		d.On(link, dom.EventClick, func(dom.Event) { scroller.ScrollTop() })
		wired = append(wired, "tab:"+t.name)
	}

	if sharer := f.caps.Sharer; sharer != nil {
		if n := f.first(d, f.shareTarget); n != nil && pc.claim(FeatureShare, n) {
			d.On(n, dom.EventClick, func(dom.Event) {
				req := share.FromDocument(d, f.opts.Location)
				if err := sharer.Share(pc.Ctx(), req); err != nil {
					pc.Logger.Warn("sharing page", zap.String("url", req.URL), zap.Error(err))
				}
			})
			wired = append(wired, FeatureShare)
		}
	}

	// Ctrl/Meta+Enter submits the form holding the focused field.
	if pc.claim(FeatureSubmit, nil) {
		d.On(nil, dom.EventKeyDown, func(ev dom.Event) {
			if pc.Done() || ev.Key != "Enter" || !(ev.Ctrl || ev.Meta) {
				return
			}
			var form *html.Node
			d.View(func(*goquery.Document) { form = dom.Closest(ev.Target, "form") })
			if form != nil {
				d.Dispatch(form, dom.Event{Type: dom.EventSubmit})
			}
		})
		wired = append(wired, FeatureSubmit)
	}
	return wired
}

func (f *Fixer) settingsPage(d *dom.Document) bool {
	var heading string
	d.View(func(doc *goquery.Document) {
		heading = strings.TrimSpace(doc.Find("main h5").First().Text())
	})
	return heading == f.opts.SettingsHeading
}
