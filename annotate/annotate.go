package annotate

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// Marker is the class added to nodes that have been annotated.
const Marker = "ff"

// imageExts are the link-text suffixes that turn a link into an inline image.
var imageExts = []string{".webp", ".jpg", ".jpeg", ".png"}

// Selectors locate the content an Annotator works on.
type Selectors struct {
	Text    string // text-bearing post nodes
	Anchors string // anchors eligible for image conversion
}

// DefaultSelectors returns the flow table selectors.
func DefaultSelectors() Selectors {
	return Selectors{
		Text:    "#table-flow article span",
		Anchors: "#table-flow a",
	}
}

// Annotator rewrites post content in a document.
type Annotator struct {
	routes   Routes
	text     cascadia.Selector
	anchors  cascadia.Selector
	imgLinks cascadia.Selector
	policy   *bluemonday.Policy // nil when sanitizing is off
}

// New compiles the selectors and returns an Annotator. When sanitize is set,
// post markup is cleaned with a user-content policy before linkifying.
func New(routes Routes, sel Selectors, sanitize bool) (*Annotator, error) {
	text, err := cascadia.Compile(sel.Text)
	if err != nil {
		return nil, fmt.Errorf("compiling text selector %q: %w", sel.Text, err)
	}
	anchors, err := cascadia.Compile(sel.Anchors)
	if err != nil {
		return nil, fmt.Errorf("compiling anchor selector %q: %w", sel.Anchors, err)
	}

	a := &Annotator{
		routes:   routes,
		text:     text,
		anchors:  anchors,
		imgLinks: cascadia.MustCompile("a > img"),
	}
	if sanitize {
		a.policy = bluemonday.UGCPolicy()
	}
	return a, nil
}

// Text linkifies every text node not yet marked and marks it.
// Returns the number of nodes annotated.
func (a *Annotator) Text(doc *goquery.Selection) int {
	var top *html.Node
	if doc.Length() > 0 {
		top = root(doc.Get(0))
	}
	count := 0
	doc.FindMatcher(a.text).Each(func(_ int, s *goquery.Selection) {
		// Spans nested in one rewritten earlier in this pass are detached.
		if s.HasClass(Marker) || root(s.Get(0)) != top {
			return
		}
		raw, err := s.Html()
		if err != nil {
			return
		}
		inner := raw
		if a.policy != nil {
			inner = a.policy.Sanitize(inner)
		}
		if out := Linkify(inner, a.routes); out != raw {
			s.SetHtml(out)
			s.FindMatcher(a.text).AddClass(Marker)
		}
		s.AddClass(Marker)
		count++
	})
	return count
}

func root(n *html.Node) *html.Node {
	for n.Parent != nil {
		n = n.Parent
	}
	return n
}

// Images replaces the content of links whose text names an image file with
// the image itself. Returns the number of links converted.
func (a *Annotator) Images(doc *goquery.Selection) int {
	count := 0
	doc.FindMatcher(a.anchors).Each(func(_ int, s *goquery.Selection) {
		inner, err := s.Html()
		if err != nil || !isImageName(inner) {
			return
		}
		href, _ := s.Attr("href")
		s.SetHtml(fmt.Sprintf(`<img class="%s" width="25%%" src="%s">`, Marker, html.EscapeString(href)))
		s.AddClass(Marker)
		count++
	})
	return count
}

// ClearImageLinks blanks the href of every anchor that directly wraps an
// image, so clicking the image does not navigate away.
func (a *Annotator) ClearImageLinks(doc *goquery.Selection) int {
	count := 0
	doc.FindMatcher(a.imgLinks).Parent().Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok && href == "" {
			return
		}
		s.SetAttr("href", "")
		count++
	})
	return count
}

// Run applies all three passes in order.
func (a *Annotator) Run(doc *goquery.Selection) Result {
	return Result{
		Text:    a.Text(doc),
		Images:  a.Images(doc),
		Cleared: a.ClearImageLinks(doc),
	}
}

// Result counts the nodes changed by Run.
type Result struct {
	Text    int
	Images  int
	Cleared int
}

// Changed reports whether any node was modified.
func (r Result) Changed() bool {
	return r.Text+r.Images+r.Cleared > 0
}

func isImageName(s string) bool {
	for _, ext := range imageExts {
		if strings.HasSuffix(s, ext) {
			return true
		}
	}
	return false
}
