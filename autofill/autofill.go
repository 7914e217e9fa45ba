// Package autofill submits the login form when a password manager fills
// both credentials at once.
//
// Tracking starts when the username field is first clicked. A password
// change landing within Window of a username change, with a username that
// differs from the one present at click time, is taken as an autofill.
package autofill

import (
	"sync"
	"time"

	"littrfix/dom"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Window is the largest gap between the two field changes of an autofill.
const Window = 50 * time.Millisecond

// Tracker holds the autofill detection state for one login form.
type Tracker struct {
	mu  sync.Mutex
	now func() time.Time

	armed        bool
	usernameOld  string
	usernameTime time.Time
	passwordTime time.Time
}

// NewTracker creates a tracker reading time from now (time.Now if nil).
func NewTracker(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{now: now}
}

// Clicked arms the tracker with the current username. Returns false if it
// was already armed.
func (t *Tracker) Clicked(username string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.armed {
		return false
	}
	t.armed = true
	t.usernameOld = username
	return true
}

// Armed reports whether tracking is in progress.
func (t *Tracker) Armed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armed
}

// UsernameChanged records a username change.
func (t *Tracker) UsernameChanged() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.armed {
		t.usernameTime = t.now()
	}
}

// PasswordChanged records a password change and reports whether the form
// should be submitted. A positive answer resets the tracker.
func (t *Tracker) PasswordChanged(username string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.armed {
		return false
	}
	t.passwordTime = t.now()
	if username == t.usernameOld || t.usernameTime.IsZero() {
		return false
	}

	gap := t.passwordTime.Sub(t.usernameTime)
	if gap < 0 {
		gap = -gap
	}
	if gap >= Window {
		return false
	}

	t.armed = false
	t.usernameOld = ""
	t.usernameTime = time.Time{}
	t.passwordTime = time.Time{}
	return true
}

// Selectors locate the login form fields.
type Selectors struct {
	Username string
	Password string
	Submit   string
}

// DefaultSelectors returns the positions of the fields on the login page.
// They count the offline badge the fixer prepends to main.
func DefaultSelectors() Selectors {
	return Selectors{
		Username: "body > div > main > div:nth-child(6) > input",
		Password: "body > div > main > div:nth-child(7) > input",
		Submit:   "body > div > main > button:nth-child(8)",
	}
}

// Wire attaches the tracker to the login form in d. Returns the username
// node, or nil when the page has no login form.
func Wire(d *dom.Document, sel Selectors, t *Tracker) *html.Node {
	var username, password *html.Node
	d.View(func(doc *goquery.Document) {
		u := doc.Find(sel.Username).First()
		p := doc.Find(sel.Password).First()
		if u.Length() > 0 && p.Length() > 0 {
			username, password = u.Get(0), p.Get(0)
		}
	})
	if username == nil {
		return nil
	}

	value := func(n *html.Node) string {
		var v string
		d.View(func(*goquery.Document) { v = dom.Attr(n, "value") })
		return v
	}

	d.On(username, dom.EventClick, func(dom.Event) {
		t.Clicked(value(username))
	})
	d.On(username, dom.EventChange, func(dom.Event) {
		t.UsernameChanged()
	})
	d.On(password, dom.EventChange, func(dom.Event) {
		if t.PasswordChanged(value(username)) {
			d.Click(sel.Submit)
		}
	})
	return username
}
