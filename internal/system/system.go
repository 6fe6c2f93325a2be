package system

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Tier classifies the host so the engine can pick texture sizes and worker
// counts that won't thrash a constrained device.
type Tier int

const (
	TierConstrained Tier = iota
	TierCapable
)

const (
	// Thresholds below which a host is treated as constrained.
	constrainedMemBytes = 4 << 30
	constrainedCores    = 4

	maxTextureConstrained = 1024
	maxTextureCapable     = 2048
)

func (t Tier) String() string {
	if t == TierCapable {
		return "capable"
	}
	return "constrained"
}

// MaxTextureSize returns the largest allowed dimension for a normalized
// source image on this tier.
func (t Tier) MaxTextureSize() int {
	if t == TierCapable {
		return maxTextureCapable
	}
	return maxTextureConstrained
}

// MaxTiltRate returns the throttle ceiling for interactive tilt updates,
// in accepted updates per second.
func (t Tier) MaxTiltRate() int {
	if t == TierCapable {
		return 60
	}
	return 30
}

// DetectTier probes total memory and logical core count. If the probe fails
// (restricted container, unsupported platform) the host is assumed
// constrained, since the cheaper path always works.
func DetectTier() Tier {
	vm, err := mem.VirtualMemory()
	if err != nil || vm.Total < constrainedMemBytes {
		return TierConstrained
	}

	count, err := cpu.Counts(true)
	if err != nil {
		count = runtime.NumCPU()
	}
	if count < constrainedCores {
		return TierConstrained
	}

	return TierCapable
}

// RenderWorkers returns how many frame-generation goroutines a bake should
// run on this tier, capped by the number of frames.
func (t Tier) RenderWorkers(frames int) int {
	n := runtime.NumCPU()
	if t == TierConstrained && n > 2 {
		n = 2
	}
	if n > frames {
		n = frames
	}
	if n < 1 {
		n = 1
	}
	return n
}
