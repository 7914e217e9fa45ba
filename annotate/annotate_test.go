package annotate

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func parse(t *testing.T, s string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return doc
}

func render(t *testing.T, doc *goquery.Document) string {
	t.Helper()
	out, err := goquery.OuterHtml(doc.Selection)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	return out
}

func newAnnotator(t *testing.T, sanitize bool) *Annotator {
	t.Helper()
	a, err := New(DefaultRoutes(), DefaultSelectors(), sanitize)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return a
}

const flow = `<table id="table-flow"><tbody><tr><td>
<article><span>hello #go https://x.com/pic.png</span></article>
</td></tr></tbody></table>`

func TestRun(t *testing.T) {
	a := newAnnotator(t, false)
	doc := parse(t, flow)

	res := a.Run(doc.Selection)
	if res.Text != 1 || res.Images != 1 || res.Cleared != 1 {
		t.Fatalf("unexpected result %+v", res)
	}

	span := doc.Find("#table-flow article span")
	if !span.HasClass(Marker) {
		t.Error("span should carry the marker class")
	}
	if cls, _ := span.Find(`a[href="/flow/hashtags/go"]`).Attr("class"); cls != "red-text" {
		t.Error("expected hashtag link")
	}

	img := span.Find("a > img")
	if src, _ := img.Attr("src"); src != "https://x.com/pic.png" {
		t.Errorf("expected inline image, got src %q", src)
	}
	if href, _ := img.Parent().Attr("href"); href != "" {
		t.Errorf("image link href should be cleared, got %q", href)
	}
}

func TestRunIdempotent(t *testing.T) {
	a := newAnnotator(t, false)
	doc := parse(t, flow)

	a.Run(doc.Selection)
	first := render(t, doc)

	res := a.Run(doc.Selection)
	if res.Changed() {
		t.Errorf("second run should change nothing, got %+v", res)
	}
	if second := render(t, doc); second != first {
		t.Errorf("second run altered the document\nfirst:  %s\nsecond: %s", first, second)
	}
}

func TestImages(t *testing.T) {
	a := newAnnotator(t, false)
	doc := parse(t, `<table id="table-flow"><tbody><tr><td>
<a id="p" href="/img/photo.png">photo.png</a>
<a id="u" href="/img/PHOTO.PNG">PHOTO.PNG</a>
<a id="t" href="/flow">photo.png later</a>
</td></tr></tbody></table>`)

	if n := a.Images(doc.Selection); n != 1 {
		t.Errorf("expected 1 conversion, got %d", n)
	}
	if src, _ := doc.Find("#p > img").Attr("src"); src != "/img/photo.png" {
		t.Errorf("expected image from href, got %q", src)
	}
	if !doc.Find("#p").HasClass(Marker) {
		t.Error("converted link should be marked")
	}
	if doc.Find("#u img").Length() != 0 {
		t.Error("suffix match is case-sensitive")
	}
	if doc.Find("#t img").Length() != 0 {
		t.Error("only a trailing suffix converts")
	}

	if n := a.ClearImageLinks(doc.Selection); n != 1 {
		t.Errorf("expected 1 cleared link, got %d", n)
	}
	if href, _ := doc.Find("#p").Attr("href"); href != "" {
		t.Errorf("expected cleared href, got %q", href)
	}
}

func TestTextSkipsMarked(t *testing.T) {
	a := newAnnotator(t, false)
	doc := parse(t, `<div id="table-flow"><article><span class="ff">#old</span><span>#new</span></article></div>`)

	if n := a.Text(doc.Selection); n != 1 {
		t.Errorf("expected 1 annotated span, got %d", n)
	}
	if doc.Find(`a[href="/flow/hashtags/old"]`).Length() != 0 {
		t.Error("marked span should be skipped")
	}
	if doc.Find(`a[href="/flow/hashtags/new"]`).Length() != 1 {
		t.Error("unmarked span should be annotated")
	}
}

func TestTextSanitize(t *testing.T) {
	a := newAnnotator(t, true)
	doc := parse(t, `<div id="table-flow"><article><span><script>alert(1)</script>hi @bob</span></article></div>`)

	a.Text(doc.Selection)
	out := render(t, doc)
	if strings.Contains(out, "alert") {
		t.Errorf("script should be removed: %s", out)
	}
	if doc.Find(`a[href="/flow/users/bob"]`).Length() != 1 {
		t.Errorf("mention should still be linked: %s", out)
	}
}

func TestTextSanitizeWithoutTokens(t *testing.T) {
	a := newAnnotator(t, true)
	doc := parse(t, `<div id="table-flow"><article><span><img src=x onerror="alert(1)">plain words</span></article></div>`)

	if n := a.Text(doc.Selection); n != 1 {
		t.Fatalf("expected one node annotated, got %d", n)
	}
	out := render(t, doc)
	if strings.Contains(out, "onerror") {
		t.Errorf("event handler should be stripped: %s", out)
	}
	if !strings.Contains(out, "plain words") {
		t.Errorf("text should survive: %s", out)
	}
}

func TestTextNestedSpans(t *testing.T) {
	a := newAnnotator(t, false)
	doc := parse(t, `<div id="table-flow"><article><span>hi <span>#go</span></span></article></div>`)

	a.Text(doc.Selection)
	first := render(t, doc)
	if doc.Find(`a[href="/flow/hashtags/go"]`).Length() != 1 {
		t.Errorf("expected exactly one hashtag link: %s", first)
	}
	if doc.Find("span:not(.ff)").Length() != 0 {
		t.Errorf("every span should be marked: %s", first)
	}

	if n := a.Text(doc.Selection); n != 0 {
		t.Errorf("second pass annotated %d nodes", n)
	}
	if second := render(t, doc); second != first {
		t.Errorf("second pass changed the document:\n%s\n%s", first, second)
	}
}

func TestNewRejectsBadSelector(t *testing.T) {
	if _, err := New(DefaultRoutes(), Selectors{Text: "[[", Anchors: "a"}, false); err == nil {
		t.Error("expected error for invalid text selector")
	}
	if _, err := New(DefaultRoutes(), Selectors{Text: "span", Anchors: ":::"}, false); err == nil {
		t.Error("expected error for invalid anchor selector")
	}
}
