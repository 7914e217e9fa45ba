package dom

import "sync"

// Viewport is the scroll state of a page. The heights come from whatever
// host displays the page, through Resize; until then the page cannot scroll
// and only ScrollTop has an effect.
type Viewport struct {
	mu     sync.Mutex
	scroll int
	height int // full scrollable height
	client int // visible height
}

// NewViewport creates a viewport for content of the given heights.
func NewViewport(height, client int) *Viewport {
	return &Viewport{height: height, client: client}
}

// Resize updates the content and visible heights.
func (v *Viewport) Resize(height, client int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.height = height
	v.client = client
	v.clamp()
}

// ScrollBy moves the scroll position by px.
func (v *Viewport) ScrollBy(px int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scroll += px
	v.clamp()
}

// ScrollTop returns to the top of the page.
func (v *Viewport) ScrollTop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scroll = 0
}

// Position returns the scroll offset in pixels.
func (v *Viewport) Position() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.scroll
}

func (v *Viewport) clamp() {
	max := v.height - v.client
	if max < 0 {
		max = 0
	}
	if v.scroll > max {
		v.scroll = max
	}
	if v.scroll < 0 {
		v.scroll = 0
	}
}
