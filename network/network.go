// Package network reflects connectivity in the page: online/offline
// attributes on <html> and a badge while offline.
package network

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"littrfix/dom"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	badgeSelector = "body > div > main > span.offline"
	badgeStyle    = "font-size:2.5rem;position:fixed;left:1px;bottom:5rem;z-index:999999"
	hiddenStyle   = "display: none;"
)

// Apply marks the page online or offline. The badge is the span.offline
// placeholder at the head of main; it is shown or hidden in place so the
// position of the other children of main never changes.
func Apply(d *dom.Document, online bool) {
	d.Update(func(doc *goquery.Document) {
		doc.Find("html").
			SetAttr("offline", strconv.FormatBool(!online)).
			SetAttr("online", strconv.FormatBool(online))

		badge := doc.Find(badgeSelector).First()
		if badge.Length() == 0 {
			if online {
				return
			}
			main := doc.Find("body > div > main").First()
			main.PrependHtml(`<span class="offline"></span>`)
			badge = main.Children().First()
		}
		if online {
			badge.SetAttr("style", hiddenStyle).SetText("")
		} else {
			badge.SetAttr("style", badgeStyle).SetText("offline")
		}
	})
}

// Monitor probes a URL and reports connectivity changes.
type Monitor struct {
	url      string
	interval time.Duration
	client   *http.Client
	logger   *zap.Logger
	onChange func(online bool)

	mu     sync.Mutex
	known  bool
	online bool
}

// NewMonitor creates a monitor probing url every interval. onChange is called
// after the first probe and on every transition.
func NewMonitor(url string, interval time.Duration, logger *zap.Logger, onChange func(online bool)) *Monitor {
	return &Monitor{
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: interval},
		logger:   logger,
		onChange: onChange,
	}
}

// Online returns the last observed state and whether any probe has finished.
func (m *Monitor) Online() (online, known bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online, m.known
}

// Run probes until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	m.Probe(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Probe(ctx)
		}
	}
}

// Probe checks connectivity once.
func (m *Monitor) Probe(ctx context.Context) {
	online := m.reachable(ctx)
	if ctx.Err() != nil {
		return
	}

	m.mu.Lock()
	changed := !m.known || m.online != online
	m.known = true
	m.online = online
	m.mu.Unlock()

	if changed {
		m.logger.Info("network status changed", zap.Bool("online", online))
		if m.onChange != nil {
			m.onChange(online)
		}
	}
}

func (m *Monitor) reachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.url, nil)
	if err != nil {
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		m.logger.Debug("probe failed", zap.String("url", m.url), zap.Error(err))
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}
