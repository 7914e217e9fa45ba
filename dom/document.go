// Package dom provides a lockable HTML document surface with per-node data,
// event listeners and inline style editing.
//
// A Document is owned by whoever renders the page. Patchers read and mutate
// it through View and Update; they never replace the tree itself.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document is a rendered page plus the in-memory state attached to its nodes.
type Document struct {
	mu  sync.RWMutex
	doc *goquery.Document

	dataMu sync.Mutex
	data   map[*html.Node]map[string]any

	listenMu  sync.Mutex
	listeners map[*html.Node]map[string][]Handler

	// Viewport tracks scroll state for the page. It starts empty; a host
	// that renders the page sizes it with Resize.
	Viewport *Viewport
}

// New wraps an already parsed goquery document.
func New(doc *goquery.Document) *Document {
	return &Document{
		doc:       doc,
		data:      make(map[*html.Node]map[string]any),
		listeners: make(map[*html.Node]map[string][]Handler),
		Viewport:  NewViewport(0, 0),
	}
}

// Parse reads HTML into a new Document.
func Parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	return New(doc), nil
}

// ParseString parses HTML from a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// View runs fn with read access to the tree.
func (d *Document) View(fn func(doc *goquery.Document)) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fn(d.doc)
}

// Update runs fn with exclusive access to the tree.
// Dispatch must not be called from inside fn.
func (d *Document) Update(fn func(doc *goquery.Document)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d.doc)
}

// HTML renders the full document.
func (d *Document) HTML() (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var buf bytes.Buffer
	for _, n := range d.doc.Nodes {
		if err := html.Render(&buf, n); err != nil {
			return "", fmt.Errorf("rendering document: %w", err)
		}
	}
	return buf.String(), nil
}

// Title returns the text of the <title> element.
func (d *Document) Title() string {
	var title string
	d.View(func(doc *goquery.Document) {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	})
	return title
}

// Data returns the value stored under key for node n.
func (d *Document) Data(n *html.Node, key string) (any, bool) {
	d.dataMu.Lock()
	defer d.dataMu.Unlock()
	v, ok := d.data[n][key]
	return v, ok
}

// SetData stores v under key for node n. The value lives as long as the node
// stays attached; replacing the node drops it.
func (d *Document) SetData(n *html.Node, key string, v any) {
	if n == nil {
		return
	}
	d.dataMu.Lock()
	defer d.dataMu.Unlock()
	m := d.data[n]
	if m == nil {
		m = make(map[string]any)
		d.data[n] = m
	}
	m[key] = v
}

// Flag reports whether a boolean marker is set on n.
func (d *Document) Flag(n *html.Node, key string) bool {
	v, ok := d.Data(n, key)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Replace swaps the first element matching selector for freshly parsed
// markup, as a re-render of that container would. Data and listeners bound
// to the removed subtree are dropped. Returns false when nothing matched.
func (d *Document) Replace(selector, markup string) bool {
	replaced := false
	d.Update(func(doc *goquery.Document) {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			return
		}
		sel.ReplaceWithHtml(markup)
		replaced = true
	})
	if replaced {
		d.Prune()
	}
	return replaced
}

// Prune drops data and listeners bound to nodes no longer in the tree.
func (d *Document) Prune() {
	d.mu.RLock()
	root := d.root()
	attached := func(n *html.Node) bool {
		for p := n; p != nil; p = p.Parent {
			if p == root {
				return true
			}
		}
		return false
	}

	d.dataMu.Lock()
	for n := range d.data {
		if !attached(n) {
			delete(d.data, n)
		}
	}
	d.dataMu.Unlock()

	d.listenMu.Lock()
	for n := range d.listeners {
		if n != nil && !attached(n) {
			delete(d.listeners, n)
		}
	}
	d.listenMu.Unlock()
	d.mu.RUnlock()
}

func (d *Document) root() *html.Node {
	if len(d.doc.Nodes) == 0 {
		return nil
	}
	return d.doc.Nodes[0]
}

// Closest returns the nearest ancestor of n (or n itself) with the given tag.
func Closest(n *html.Node, tag string) *html.Node {
	for p := n; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == tag {
			return p
		}
	}
	return nil
}

// Attr returns the value of attribute key on n.
func Attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
