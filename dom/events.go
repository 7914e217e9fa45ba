package dom

import (
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Event types used by the patchers.
const (
	EventClick   = "click"
	EventChange  = "change"
	EventKeyDown = "keydown"
	EventSubmit  = "submit"
	EventMessage = "message"
)

// Event is a user interaction or a synthetic notification.
type Event struct {
	Type   string
	Target *html.Node

	// Keyboard state for keydown events
	Key  string
	Ctrl bool
	Meta bool

	// Name and payload of message events
	Name string
	Data string
}

// Handler reacts to a dispatched event.
type Handler func(Event)

// On registers h for events of type typ on node n.
// A nil node registers a document-level listener.
func (d *Document) On(n *html.Node, typ string, h Handler) {
	d.listenMu.Lock()
	defer d.listenMu.Unlock()
	m := d.listeners[n]
	if m == nil {
		m = make(map[string][]Handler)
		d.listeners[n] = m
	}
	m[typ] = append(m[typ], h)
}

// Listeners returns how many handlers of type typ are bound directly to n.
func (d *Document) Listeners(n *html.Node, typ string) int {
	d.listenMu.Lock()
	defer d.listenMu.Unlock()
	return len(d.listeners[n][typ])
}

// Dispatch delivers ev to listeners on target, then its ancestors, then the
// document. Returns the number of handlers invoked.
func (d *Document) Dispatch(target *html.Node, ev Event) int {
	ev.Target = target

	d.mu.RLock()
	var path []*html.Node
	for p := target; p != nil; p = p.Parent {
		path = append(path, p)
	}
	d.mu.RUnlock()
	path = append(path, nil)

	var handlers []Handler
	d.listenMu.Lock()
	for _, n := range path {
		handlers = append(handlers, d.listeners[n][ev.Type]...)
	}
	d.listenMu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
	return len(handlers)
}

// Click dispatches a click to the first element matching selector.
// Returns false if nothing matched.
func (d *Document) Click(selector string) bool {
	var target *html.Node
	d.View(func(doc *goquery.Document) {
		if sel := doc.Find(selector).First(); sel.Length() > 0 {
			target = sel.Get(0)
		}
	})
	if target == nil {
		return false
	}
	d.Dispatch(target, Event{Type: EventClick})
	return true
}
