// Package tilt normalizes device-orientation and manual-drag input into the
// single [-1,1] scalar both compositors consume. The engine never talks to a
// sensor or a permission prompt directly; it only sees the normalized value.
package tilt

import "math"

// Access is the outcome of a capability check on a tilt source. The
// platform-specific permission flow (where one exists) lives behind the
// source; the engine only branches on this result.
type Access int

const (
	AccessGranted Access = iota
	AccessDenied
	AccessUnsupported
)

func (a Access) String() string {
	switch a {
	case AccessGranted:
		return "granted"
	case AccessDenied:
		return "denied"
	}
	return "unsupported"
}

// MaxOrientationDeg is the device roll angle mapped to full tilt. Angles
// beyond it saturate.
const MaxOrientationDeg = 45.0

// Source produces tilt samples after a successful capability check.
type Source interface {
	// Capability reports whether this source can deliver samples. A denied
	// or unsupported source never produces values; callers fall back to drag.
	Capability() Access
	// Tilt returns the latest normalized sample in [-1,1].
	Tilt() float64
}

// FromOrientation maps a device roll angle in degrees to [-1,1].
func FromOrientation(deg float64) float64 {
	return Clamp(deg / MaxOrientationDeg)
}

// FromDrag maps a horizontal drag offset against the surface width to
// [-1,1]. A drag of half the surface width in either direction saturates.
func FromDrag(dx, width float64) float64 {
	if width <= 0 {
		return 0
	}
	return Clamp(2 * dx / width)
}

// Clamp bounds a tilt sample to [-1,1]. NaN collapses to 0 so a glitching
// sensor can't poison the smoothing window.
func Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

// DragSource adapts manual drag gestures. It is always available.
type DragSource struct {
	width float64
	value float64
}

// NewDragSource creates a drag adapter for a surface of the given width in
// the gesture's coordinate units.
func NewDragSource(width float64) *DragSource {
	return &DragSource{width: width}
}

func (d *DragSource) Capability() Access { return AccessGranted }

// SetDrag records the current drag offset from the gesture origin.
func (d *DragSource) SetDrag(dx float64) {
	d.value = FromDrag(dx, d.width)
}

func (d *DragSource) Tilt() float64 { return d.value }

// OrientationSource adapts a device-orientation feed. The probe abstracts
// the platform permission flow: it is asked once and the result is cached.
type OrientationSource struct {
	probe   func() Access
	read    func() float64 // current roll angle in degrees
	checked bool
	access  Access
}

// NewOrientationSource wraps a capability probe and an angle reader.
func NewOrientationSource(probe func() Access, read func() float64) *OrientationSource {
	return &OrientationSource{probe: probe, read: read}
}

func (o *OrientationSource) Capability() Access {
	if !o.checked {
		o.access = o.probe()
		o.checked = true
	}
	return o.access
}

func (o *OrientationSource) Tilt() float64 {
	if o.Capability() != AccessGranted {
		return 0
	}
	return FromOrientation(o.read())
}
