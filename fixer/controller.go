package fixer

import (
	"context"
	"sync"

	"littrfix/dom"
	"littrfix/theme"

	"go.uber.org/zap"
)

// Controller owns the page lifecycle. Every Load starts a new render with
// its own Context; cycles always run against the latest one.
type Controller struct {
	fixer  *Fixer
	logger *zap.Logger

	mu   sync.Mutex
	doc  *dom.Document
	page *Context
}

// NewController creates a controller without a page.
func NewController(f *Fixer, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{fixer: f, logger: logger}
}

// Load makes d the current page. The previous render is discarded and the
// persisted colour mode is applied to the new one.
func (c *Controller) Load(ctx context.Context, d *dom.Document) *Context {
	caps := c.fixer.Capabilities()
	pc := NewContext(ctx, c.logger, caps.Clock)

	c.mu.Lock()
	prev := c.page
	c.doc, c.page = d, pc
	c.mu.Unlock()

	if prev != nil {
		prev.Close()
	}

	mode, err := theme.Restore(ctx, d, caps.Prefs)
	if err != nil {
		pc.Logger.Warn("restoring colour mode", zap.Error(err))
	}
	pc.Logger.Info("page loaded",
		zap.String("title", d.Title()),
		zap.Stringer("mode", mode))
	return pc
}

// Page returns the current document and render, or nils before the first
// Load.
func (c *Controller) Page() (*dom.Document, *Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc, c.page
}

// Cycle runs one fixup cycle on the current page. It reports false when no
// page is loaded.
func (c *Controller) Cycle(ctx context.Context) (CycleResult, bool) {
	d, pc := c.Page()
	if d == nil {
		return CycleResult{}, false
	}
	return c.fixer.RunCycle(ctx, d, pc), true
}

// Close discards the current render.
func (c *Controller) Close() {
	c.mu.Lock()
	pc := c.page
	c.page, c.doc = nil, nil
	c.mu.Unlock()
	if pc != nil {
		pc.Close()
	}
}
