package network

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"littrfix/dom"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const page = `<html><body><div><main><p>flow</p></main></div></body></html>`

func TestApply(t *testing.T) {
	d, _ := dom.ParseString(page)

	Apply(d, false)
	Apply(d, false)
	d.View(func(doc *goquery.Document) {
		badge := doc.Find("span.offline")
		if n := badge.Length(); n != 1 {
			t.Errorf("expected one badge, got %d", n)
		}
		if badge.Text() != "offline" {
			t.Errorf("badge should read offline, got %q", badge.Text())
		}
		if v, _ := doc.Find("html").Attr("offline"); v != "true" {
			t.Errorf("expected offline=true, got %q", v)
		}
		if !doc.Find("main").Children().First().HasClass("offline") {
			t.Error("badge should be the first child of main")
		}
	})

	Apply(d, true)
	d.View(func(doc *goquery.Document) {
		badge := doc.Find("span.offline")
		if badge.Length() != 1 || badge.AttrOr("style", "") != hiddenStyle {
			t.Error("badge should stay in place, hidden, when online")
		}
		if v, _ := doc.Find("html").Attr("online"); v != "true" {
			t.Errorf("expected online=true, got %q", v)
		}
	})
}

func TestApplyFillsPlaceholder(t *testing.T) {
	d, _ := dom.ParseString(`<html><body><div><main><span class="offline" style="display: none;"></span><h5>login</h5></main></div></body></html>`)

	Apply(d, false)
	d.View(func(doc *goquery.Document) {
		if n := doc.Find("main > span").Length(); n != 1 {
			t.Errorf("placeholder should be reused, got %d spans", n)
		}
		if n := doc.Find("main").Children().Length(); n != 2 {
			t.Errorf("main should keep two children, got %d", n)
		}
		if s := doc.Find("span.offline").AttrOr("style", ""); s != badgeStyle {
			t.Errorf("badge should be shown, got style %q", s)
		}
	})
}

func TestApplyOnlineWithoutBadge(t *testing.T) {
	d, _ := dom.ParseString(page)
	Apply(d, true)
	d.View(func(doc *goquery.Document) {
		if doc.Find("span.offline").Length() != 0 {
			t.Error("no badge should be added while online")
		}
	})
}

func TestMonitorTransitions(t *testing.T) {
	var up atomic.Bool
	up.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !up.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	var changes []bool
	m := NewMonitor(srv.URL, time.Second, zap.NewNop(), func(online bool) {
		changes = append(changes, online)
	})

	ctx := context.Background()
	m.Probe(ctx)
	m.Probe(ctx)
	up.Store(false)
	m.Probe(ctx)

	if len(changes) != 2 || !changes[0] || changes[1] {
		t.Errorf("expected [true false], got %v", changes)
	}
	if online, known := m.Online(); online || !known {
		t.Errorf("expected known offline, got online=%v known=%v", online, known)
	}
}

func TestMonitorUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	m := NewMonitor(url, time.Second, zap.NewNop(), nil)
	m.Probe(context.Background())
	if online, _ := m.Online(); online {
		t.Error("closed server should read as offline")
	}
}

func TestMonitorRunStops(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	m := NewMonitor(srv.URL, 10*time.Millisecond, zap.NewNop(), nil)

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
