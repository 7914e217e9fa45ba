package fixer

import (
	"context"
	"sync"
	"time"

	"littrfix/autofill"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Context is the state of one page render. The controller creates a fresh
// Context when a page loads and cancels it when the page goes away.
type Context struct {
	ID      uuid.UUID
	Started time.Time
	Logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	autofill *autofill.Tracker

	mu     sync.Mutex
	wired  map[string]*html.Node // feature -> node its handler is bound to
	cycles int
}

// NewContext creates the state for a new render. The returned Context is
// cancelled when parent is, or when Close is called.
func NewContext(parent context.Context, logger *zap.Logger, now func() time.Time) *Context {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.New()
	ctx, cancel := context.WithCancel(parent)
	return &Context{
		ID:       id,
		Started:  now(),
		Logger:   logger.With(zap.String("render", id.String())),
		ctx:      ctx,
		cancel:   cancel,
		autofill: autofill.NewTracker(now),
		wired:    make(map[string]*html.Node),
	}
}

// Ctx is cancelled when the render is discarded. Event handlers use it for
// the work they start.
func (c *Context) Ctx() context.Context {
	return c.ctx
}

// Close discards the render.
func (c *Context) Close() {
	c.cancel()
}

// Done reports whether the render has been discarded.
func (c *Context) Done() bool {
	return c.ctx.Err() != nil
}

// claim records that feature is being wired to target. It returns false if
// the feature is already wired to that same node.
func (c *Context) claim(feature string, target *html.Node) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.wired[feature]; ok && prev == target {
		return false
	}
	c.wired[feature] = target
	return true
}

// Wired reports whether feature has a handler attached in this render.
func (c *Context) Wired(feature string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.wired[feature]
	return ok
}

// Cycles returns how many fixup cycles ran in this render.
func (c *Context) Cycles() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cycles
}

func (c *Context) countCycle() {
	c.mu.Lock()
	c.cycles++
	c.mu.Unlock()
}
