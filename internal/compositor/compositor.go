// Package compositor realizes the strip mapping against a live tilt signal.
// State changes happen through the explicit mutators SetTiltValue and
// SetImageSet, each with a documented render side effect; there is no
// subscription machinery and no global state. All derived parameters live on
// the Compositor itself.
package compositor

import (
	"image"
	"sync"
	"time"

	"github.com/ivlev/lenticular/internal/lens"
	"github.com/ivlev/lenticular/internal/normalize"
	"github.com/ivlev/lenticular/internal/system"
	"github.com/ivlev/lenticular/internal/tilt"
)

// Surface receives composited frames for display. Present is called from
// whatever goroutine mutated the compositor; implementations must finish
// with (or copy) the buffer before returning, because it is reused for the
// next frame.
type Surface interface {
	Present(frame *image.RGBA)
}

const (
	// Tilt deltas below this are sensor jitter, not movement.
	minTiltDelta = 0.004
	// Trailing samples averaged before the mapping sees the tilt.
	smoothingWindow = 5
)

// Compositor renders the lenticular effect at interactive rates. It is safe
// for use from a single goroutine at a time; the internal lock only guards
// against a surface callback racing a mutator.
type Compositor struct {
	mu      sync.Mutex
	surface Surface
	params  lens.Params

	width, height int

	set   *normalize.ImageSet
	frame *image.RGBA // pooled; released on image-set change and Close

	window      []float64
	accepted    float64
	hasAccepted bool

	minInterval time.Duration
	lastUpdate  time.Time
	now         func() time.Time
}

// New creates a compositor rendering width x height frames onto surface. The
// host tier bounds the tilt update rate.
func New(surface Surface, width, height int, params lens.Params, tier system.Tier) *Compositor {
	return &Compositor{
		surface:     surface,
		params:      params,
		width:       width,
		height:      height,
		minInterval: time.Second / time.Duration(tier.MaxTiltRate()),
		now:         time.Now,
	}
}

// SetImageSet swaps the displayed image set and re-renders at the current
// smoothed tilt. The previous frame buffer is released back to the pool
// before a new one is taken, so a set change never doubles the allocation.
// A nil set blanks the compositor.
func (c *Compositor) SetImageSet(set *normalize.ImageSet) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frame != nil {
		system.PutFrame(c.frame)
		c.frame = nil
	}
	c.set = set
	if set == nil {
		return
	}
	c.render()
}

// SetTiltValue feeds one tilt sample. Samples are clamped, throttled to the
// tier's update rate, ignored below the jitter threshold, then averaged over
// a short trailing window before the strip mapping sees them. An accepted
// sample triggers a render.
func (c *Compositor) SetTiltValue(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v = tilt.Clamp(v)

	now := c.now()
	if c.hasAccepted {
		if now.Sub(c.lastUpdate) < c.minInterval {
			return // hold the last accepted value until the window passes
		}
		if abs(v-c.accepted) < minTiltDelta {
			return
		}
	}

	c.accepted = v
	c.hasAccepted = true
	c.lastUpdate = now

	c.window = append(c.window, v)
	if len(c.window) > smoothingWindow {
		c.window = c.window[len(c.window)-smoothingWindow:]
	}

	if c.set != nil {
		c.render()
	}
}

// Redraw re-renders at the current smoothed tilt. Hosts with a display
// refresh callback drive this once per vsync; it bypasses the tilt throttle.
func (c *Compositor) Redraw() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.set != nil {
		c.render()
	}
}

// Tilt returns the smoothed tilt currently feeding the mapping.
func (c *Compositor) Tilt() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.smoothed()
}

// Close releases the pooled frame buffer. The compositor must not be used
// afterwards.
func (c *Compositor) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frame != nil {
		system.PutFrame(c.frame)
		c.frame = nil
	}
	c.set = nil
}

func (c *Compositor) smoothed() float64 {
	if len(c.window) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range c.window {
		sum += v
	}
	return sum / float64(len(c.window))
}

func (c *Compositor) render() {
	if c.frame == nil {
		c.frame = system.GetFrame(image.Rect(0, 0, c.width, c.height))
	}
	lens.Render(c.frame, c.set.Images(), c.smoothed(), c.params)
	if c.surface != nil {
		c.surface.Present(c.frame)
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
