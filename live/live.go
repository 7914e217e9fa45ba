// Package live subscribes to the flow's server-sent event stream and turns
// each event into a page event plus an immediate fixup cycle.
package live

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"littrfix/dom"

	sse "github.com/tmaxmax/go-sse"
	"go.uber.org/zap"
)

// Path is where the flow server publishes new posts.
const Path = "/api/flow/live"

// Event kinds delivered to the page. Named SSE events keep their own type.
const (
	KindOpen    = "open"
	KindMessage = "message"
	KindError   = "error"
)

// Subscriber relays the live stream into whatever page is current.
type Subscriber struct {
	url    string
	token  string
	logger *zap.Logger

	// Page returns the document events are delivered to. It may return nil
	// while no page is loaded.
	Page func() *dom.Document
	// Trigger is called after every delivered event.
	Trigger func()

	client *sse.Client
	events atomic.Int64
}

// New creates a subscriber for url. A non-empty token is sent as
// X-Auth-Token.
func New(url, token string, logger *zap.Logger) *Subscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Subscriber{url: url, token: token, logger: logger}
	s.client = &sse.Client{
		HTTPClient: &http.Client{},
		OnRetry: func(err error, next time.Duration) {
			s.logger.Warn("live stream lost", zap.Error(err), zap.Duration("retry", next))
			s.deliver(KindError, "")
		},
		ResponseValidator: func(r *http.Response) error {
			if err := sse.DefaultValidator(r); err != nil {
				return err
			}
			s.deliver(KindOpen, "")
			return nil
		},
		Backoff: sse.Backoff{
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     30 * time.Second,
		},
	}
	return s
}

// Events returns how many events have been delivered.
func (s *Subscriber) Events() int64 {
	return s.events.Load()
}

// Run connects and relays events until ctx is cancelled or the server
// refuses the stream. Cancellation is not an error.
func (s *Subscriber) Run(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("live request: %w", err)
	}
	if s.token != "" {
		req.Header.Set("X-Auth-Token", s.token)
	}

	conn := s.client.NewConnection(req)
	conn.SubscribeToAll(func(ev sse.Event) {
		kind := ev.Type
		if kind == "" {
			kind = KindMessage
		}
		s.deliver(kind, ev.Data)
	})

	s.logger.Info("live stream connecting", zap.String("url", s.url))
	err = conn.Connect()
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("live stream: %w", err)
	}
	return nil
}

func (s *Subscriber) deliver(kind, data string) {
	s.events.Add(1)
	s.logger.Debug("live event", zap.String("kind", kind), zap.Int("bytes", len(data)))

	if s.Page != nil {
		if d := s.Page(); d != nil {
			d.Dispatch(nil, dom.Event{Type: dom.EventMessage, Name: kind, Data: data})
		}
	}
	if s.Trigger != nil {
		s.Trigger()
	}
}
