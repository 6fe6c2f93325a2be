// Package baker renders the lenticular effect across a synthetic tilt sweep
// and encodes the frames into a shareable animated artifact. Frame generation
// is CPU-bound and parallel; encoding runs on its own goroutine fed in strict
// frame order.
package baker

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/lenticular/internal/config"
	"github.com/ivlev/lenticular/internal/encoder"
	"github.com/ivlev/lenticular/internal/lens"
	"github.com/ivlev/lenticular/internal/normalize"
	"github.com/ivlev/lenticular/internal/overlay"
	"github.com/ivlev/lenticular/internal/system"
)

var (
	// ErrPrecondition rejects a bake before any frame buffer is allocated.
	ErrPrecondition = errors.New("bake preconditions not met")
	// ErrEncodingTimeout covers both a silent encoder at startup and a bake
	// that exceeds its total budget.
	ErrEncodingTimeout = errors.New("encoding timed out")
	// ErrEncodingAborted wraps a terminal failure reported by the encoder.
	ErrEncodingAborted = errors.New("encoding aborted")
	// ErrResourceExhausted rejects bakes whose retained frames would not fit
	// the buffer budget.
	ErrResourceExhausted = errors.New("frame buffers exceed the resource budget")
)

const (
	// MinDelayMS floors the per-frame delay; some decoders reject
	// zero-duration frames.
	MinDelayMS = 20

	defaultStartupTimeout = 10 * time.Second
	defaultTotalTimeout   = 2 * time.Minute

	// Total bytes of retained RGBA frames allowed for one bake.
	maxFrameBytes = int64(1) << 31

	// Share of overall progress attributed to frame generation; the
	// remainder is encoding.
	genPhaseShare = 0.4
)

// Artifact is the final encoded output. Ownership passes to the caller once
// Bake returns; the baker retains nothing.
type Artifact struct {
	Bytes      []byte
	MIME       string
	FrameCount int
	// DelayMS is the per-frame delay as encoded, rounded to the container's
	// centisecond granularity.
	DelayMS int
}

// Options parameterizes one bake. Zero values get sensible defaults except
// FrameCount and Duration, which are required.
type Options struct {
	FrameCount int
	Duration   float64 // seconds for the full animation loop
	Quality    config.QualityPreset
	Lens       lens.Params

	// QRLink, when set, stamps a share QR code on every frame.
	QRLink string

	// Workers bounds parallel frame generation. 0 = derive from host tier.
	Workers int

	// Encoder overrides the artifact encoder. nil = GIF per Quality.
	Encoder encoder.FrameEncoder

	// TiltSequence overrides the default triangle wave; len must equal
	// FrameCount when set.
	TiltSequence []float64

	StartupTimeout time.Duration
	TotalTimeout   time.Duration

	// OnProgress receives monotonically increasing fractions in [0,1].
	OnProgress func(fraction float64)
}

// Bake renders FrameCount frames of the tilt sweep over set and encodes them.
// Cancelling ctx aborts the bake, releases the encoder and all buffered
// frames, and emits no partial artifact. Two bakes with identical inputs
// produce visually equivalent artifacts; byte identity is not guaranteed
// because palette clustering seeds randomly.
func Bake(ctx context.Context, set *normalize.ImageSet, opts Options) (*Artifact, error) {
	if set == nil || set.Len() == 0 {
		return nil, fmt.Errorf("%w: no images supplied", ErrPrecondition)
	}
	if set.Len() < normalize.MinImages || set.Len() > normalize.MaxImages {
		return nil, fmt.Errorf("%w: %d images, want %d..%d", ErrPrecondition, set.Len(), normalize.MinImages, normalize.MaxImages)
	}
	if opts.FrameCount < 1 {
		return nil, fmt.Errorf("%w: frame count %d", ErrPrecondition, opts.FrameCount)
	}
	if opts.Duration <= 0 {
		return nil, fmt.Errorf("%w: duration %.2fs", ErrPrecondition, opts.Duration)
	}
	q := opts.Quality
	if q.Width <= 0 || q.Height <= 0 {
		return nil, fmt.Errorf("%w: output size %dx%d", ErrPrecondition, q.Width, q.Height)
	}
	if need := int64(q.Width) * int64(q.Height) * 4 * int64(opts.FrameCount); need > maxFrameBytes {
		return nil, fmt.Errorf("%w: %d frames at %dx%d need %d bytes", ErrResourceExhausted, opts.FrameCount, q.Width, q.Height, need)
	}
	if opts.Lens == (lens.Params{}) {
		opts.Lens = lens.Standard
	} else if opts.Lens.StripWidth <= 0 {
		// The strip partition divides by the width; a non-positive value
		// degenerates every column.
		return nil, fmt.Errorf("%w: strip width %f", ErrPrecondition, opts.Lens.StripWidth)
	}

	tilts := opts.TiltSequence
	if tilts == nil {
		tilts = TiltSequence(opts.FrameCount, WaveAmplitude)
	}
	if len(tilts) != opts.FrameCount {
		return nil, fmt.Errorf("%w: %d tilt samples for %d frames", ErrPrecondition, len(tilts), opts.FrameCount)
	}

	enc := opts.Encoder
	if enc == nil {
		enc = encoder.GIF{MaxColors: q.MaxColors, Dither: q.Dither}
	}
	startupTimeout := opts.StartupTimeout
	if startupTimeout <= 0 {
		startupTimeout = defaultStartupTimeout
	}
	totalTimeout := opts.TotalTimeout
	if totalTimeout <= 0 {
		totalTimeout = defaultTotalTimeout
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = system.DetectTier().RenderWorkers(opts.FrameCount)
	}

	// A set entry that cannot provide pixels degrades to its deterministic
	// placeholder instead of failing the bake.
	images := make([]*image.RGBA, set.Len())
	for i := range images {
		if img := set.Image(i); img != nil {
			images[i] = img
		} else {
			images[i] = normalize.Placeholder(i)
		}
	}

	report := &progressReporter{fn: opts.OnProgress}

	// Phase 1: generate frames. The strip mapping is pure, so frames render
	// in parallel; order is restored when feeding the encoder.
	frames := make([]*image.RGBA, opts.FrameCount)
	var rendered atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range frames {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			dst := image.NewRGBA(image.Rect(0, 0, q.Width, q.Height))
			lens.Render(dst, images, tilts[i], opts.Lens)
			if opts.QRLink != "" {
				if err := overlay.StampQR(dst, opts.QRLink); err != nil {
					return err
				}
			}
			frames[i] = dst

			report.set(genPhaseShare * float64(rendered.Add(1)) / float64(len(frames)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Phase 2: stream frames to the encoder in strict order.
	delayMS := int(opts.Duration*1000) / opts.FrameCount
	if delayMS < MinDelayMS {
		delayMS = MinDelayMS
	}
	// GIF stores delays in centiseconds; report the delay that was actually
	// encoded, not the millisecond formula value.
	delayCS := (delayMS + 5) / 10
	delayMS = delayCS * 10

	ectx, cancel := context.WithCancel(ctx)
	defer cancel()

	feed := make(chan encoder.Frame)
	encProgress := make(chan int, opts.FrameCount)
	type encResult struct {
		data []byte
		mime string
		err  error
	}
	resCh := make(chan encResult, 1)

	go func() {
		data, mime, err := enc.Encode(ectx, feed, opts.FrameCount, func(done, total int) {
			encProgress <- done
		})
		resCh <- encResult{data, mime, err}
	}()

	go func() {
		defer close(feed)
		for i, f := range frames {
			select {
			case <-ectx.Done():
				return
			case feed <- encoder.Frame{Index: i, Image: f, DelayCS: delayCS}:
			}
		}
	}()

	startup := time.NewTimer(startupTimeout)
	defer startup.Stop()
	budget := time.NewTimer(totalTimeout)
	defer budget.Stop()
	started := false

	for {
		select {
		case <-ctx.Done():
			cancel()
			<-resCh
			return nil, ctx.Err()
		case n := <-encProgress:
			if !started {
				started = true
				startup.Stop()
			}
			report.set(genPhaseShare + (1-genPhaseShare)*float64(n)/float64(opts.FrameCount))
		case <-startup.C:
			if !started {
				cancel()
				<-resCh
				return nil, fmt.Errorf("%w: no encoder progress within %s", ErrEncodingTimeout, startupTimeout)
			}
		case <-budget.C:
			cancel()
			<-resCh
			return nil, fmt.Errorf("%w: bake exceeded %s", ErrEncodingTimeout, totalTimeout)
		case res := <-resCh:
			if res.err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				return nil, fmt.Errorf("%w: %v", ErrEncodingAborted, res.err)
			}
			report.set(1)
			return &Artifact{
				Bytes:      res.data,
				MIME:       res.mime,
				FrameCount: opts.FrameCount,
				DelayMS:    delayMS,
			}, nil
		}
	}
}

// progressReporter serializes progress callbacks and keeps them monotonic;
// parallel frame workers may finish out of order.
type progressReporter struct {
	mu   sync.Mutex
	fn   func(float64)
	last float64
}

func (p *progressReporter) set(f float64) {
	if p.fn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if f > p.last {
		p.last = f
		p.fn(f)
	}
}
