package baker

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"math"
	"testing"
	"time"

	"github.com/ivlev/lenticular/internal/config"
	"github.com/ivlev/lenticular/internal/encoder"
	"github.com/ivlev/lenticular/internal/lens"
	"github.com/ivlev/lenticular/internal/normalize"
)

func pngBytes(t *testing.T, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 60, 80))
	for off := 0; off < len(img.Pix); off += 4 {
		img.Pix[off+0] = c.R
		img.Pix[off+1] = c.G
		img.Pix[off+2] = c.B
		img.Pix[off+3] = c.A
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding test image: %v", err)
	}
	return buf.Bytes()
}

func testSet(t *testing.T, colors ...color.RGBA) *normalize.ImageSet {
	t.Helper()
	raw := make([][]byte, len(colors))
	for i, c := range colors {
		raw[i] = pngBytes(t, c)
	}
	set, err := normalize.Normalize(raw, 512)
	if err != nil {
		t.Fatalf("building test set: %v", err)
	}
	return set
}

func smallQuality() config.QualityPreset {
	return config.QualityPreset{Name: "test", Width: 48, Height: 64, MaxColors: 8}
}

// neutralLens strips the cosmetic layers so color assertions see the blend.
func neutralLens() lens.Params {
	p := lens.Standard
	p.RidgeStrength = 0
	p.ShimmerStrength = 0
	p.FringeStrength = 0
	p.Contrast = 1
	return p
}

func TestTiltSequence(t *testing.T) {
	seq := TiltSequence(20, 0.95)

	if len(seq) != 20 {
		t.Fatalf("want 20 samples, got %d", len(seq))
	}
	if math.Abs(seq[0]-(-0.95)) > 1e-9 {
		t.Errorf("sequence must start at the negative extreme, got %f", seq[0])
	}
	if math.Abs(seq[10]-0.95) > 1e-9 {
		t.Errorf("sequence must peak at the positive extreme mid-way, got %f", seq[10])
	}
	for i, v := range seq {
		if v < -0.95-1e-9 || v > 0.95+1e-9 {
			t.Errorf("sample %d exceeds amplitude: %f", i, v)
		}
	}
	// Rising to the peak, falling after.
	for i := 1; i <= 10; i++ {
		if seq[i] <= seq[i-1] {
			t.Errorf("rising half not monotonic at %d: %f -> %f", i, seq[i-1], seq[i])
		}
	}
	for i := 11; i < 20; i++ {
		if seq[i] >= seq[i-1] {
			t.Errorf("falling half not monotonic at %d: %f -> %f", i, seq[i-1], seq[i])
		}
	}
}

func TestBakeRoundTrip(t *testing.T) {
	set := testSet(t, color.RGBA{R: 255, A: 255}, color.RGBA{B: 255, A: 255})

	art, err := Bake(context.Background(), set, Options{
		FrameCount: 20,
		Duration:   2.5,
		Quality:    smallQuality(),
		Lens:       neutralLens(),
	})
	if err != nil {
		t.Fatalf("Bake: %v", err)
	}

	if art.MIME != encoder.MIMEGIF {
		t.Errorf("MIME = %q, want %q", art.MIME, encoder.MIMEGIF)
	}
	if art.FrameCount != 20 {
		t.Errorf("FrameCount = %d, want 20", art.FrameCount)
	}
	// 2500ms / 20 frames is 125ms, which the GIF container rounds to 13cs;
	// the artifact reports the encoded value.
	if art.DelayMS != 130 {
		t.Errorf("DelayMS = %d, want 130", art.DelayMS)
	}

	decoded, err := gif.DecodeAll(bytes.NewReader(art.Bytes))
	if err != nil {
		t.Fatalf("decoding artifact: %v", err)
	}
	if len(decoded.Image) != 20 {
		t.Fatalf("decoded frame count = %d, want 20", len(decoded.Image))
	}
	for i, d := range decoded.Delay {
		if d != 13 {
			t.Errorf("frame %d delay = %dcs, want 13cs", i, d)
		}
	}
}

func TestBakeMinimumDelay(t *testing.T) {
	set := testSet(t, color.RGBA{R: 255, A: 255}, color.RGBA{B: 255, A: 255})

	// 0.05s over 10 frames would be 5ms per frame; the floor kicks in.
	art, err := Bake(context.Background(), set, Options{
		FrameCount: 10,
		Duration:   0.05,
		Quality:    smallQuality(),
		Lens:       neutralLens(),
	})
	if err != nil {
		t.Fatalf("Bake: %v", err)
	}
	if art.DelayMS != MinDelayMS {
		t.Errorf("DelayMS = %d, want floor %d", art.DelayMS, MinDelayMS)
	}
}

func avgRedBlue(img image.Image) (r, b float64) {
	bounds := img.Bounds()
	var sr, sb, n float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			cr, _, cb, _ := img.At(x, y).RGBA()
			sr += float64(cr >> 8)
			sb += float64(cb >> 8)
			n++
		}
	}
	return sr / n, sb / n
}

func TestBakeTwoImageSweep(t *testing.T) {
	set := testSet(t, color.RGBA{R: 255, A: 255}, color.RGBA{B: 255, A: 255})

	// Linear sweep from -1 to 1 instead of the default loop wave, so the
	// last frame lands on the second image.
	sweep := make([]float64, 20)
	for i := range sweep {
		sweep[i] = -1 + 2*float64(i)/float64(len(sweep)-1)
	}

	art, err := Bake(context.Background(), set, Options{
		FrameCount:   20,
		Duration:     2.5,
		Quality:      smallQuality(),
		Lens:         neutralLens(),
		TiltSequence: sweep,
	})
	if err != nil {
		t.Fatalf("Bake: %v", err)
	}

	decoded, err := gif.DecodeAll(bytes.NewReader(art.Bytes))
	if err != nil {
		t.Fatalf("decoding artifact: %v", err)
	}
	if len(decoded.Image) != 20 {
		t.Fatalf("decoded frame count = %d, want 20", len(decoded.Image))
	}

	firstR, firstB := avgRedBlue(decoded.Image[0])
	lastR, lastB := avgRedBlue(decoded.Image[19])
	midR, midB := avgRedBlue(decoded.Image[10])

	if firstR < 200 || firstB > 40 {
		t.Errorf("first frame should be dominated by image 0: r=%.1f b=%.1f", firstR, firstB)
	}
	if lastB < 200 || lastR > 40 {
		t.Errorf("last frame should be dominated by image 1: r=%.1f b=%.1f", lastR, lastB)
	}
	if diff := midR - midB; diff > 70 || diff < -70 {
		t.Errorf("middle frame should be a near-equal blend: r=%.1f b=%.1f", midR, midB)
	}
}

func TestBakeDefaultLens(t *testing.T) {
	set := testSet(t, color.RGBA{R: 255, A: 255}, color.RGBA{B: 255, A: 255})

	// A zero-value Lens falls back to the standard preset instead of reaching
	// the renderer, where a zero strip width would degenerate every column.
	art, err := Bake(context.Background(), set, Options{
		FrameCount: 4,
		Duration:   1,
		Quality:    smallQuality(),
	})
	if err != nil {
		t.Fatalf("Bake with zero lens: %v", err)
	}

	decoded, err := gif.DecodeAll(bytes.NewReader(art.Bytes))
	if err != nil {
		t.Fatalf("decoding artifact: %v", err)
	}

	// The sweep starts at the negative extreme, so the first frame must carry
	// the first image's color.
	r, b := avgRedBlue(decoded.Image[0])
	if r < 150 || b > 60 {
		t.Errorf("first frame lost source content: r=%.1f b=%.1f", r, b)
	}
}

func TestBakePlaceholderSubstitution(t *testing.T) {
	raw := [][]byte{
		pngBytes(t, color.RGBA{R: 255, A: 255}),
		pngBytes(t, color.RGBA{G: 255, A: 255}),
		[]byte("this will not decode"),
		pngBytes(t, color.RGBA{B: 255, A: 255}),
		pngBytes(t, color.RGBA{R: 255, G: 255, A: 255}),
	}
	set, err := normalize.Normalize(raw, 512)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !set.IsPlaceholder(2) {
		t.Fatal("expected layer 2 to be a placeholder")
	}

	art, err := Bake(context.Background(), set, Options{
		FrameCount: 6,
		Duration:   1.0,
		Quality:    smallQuality(),
		Lens:       neutralLens(),
	})
	if err != nil {
		t.Fatalf("bake with placeholder layer must succeed: %v", err)
	}

	decoded, err := gif.DecodeAll(bytes.NewReader(art.Bytes))
	if err != nil {
		t.Fatalf("decoding artifact: %v", err)
	}
	if len(decoded.Image) != 6 {
		t.Errorf("decoded frame count = %d, want 6", len(decoded.Image))
	}
}

func TestBakePreconditions(t *testing.T) {
	set := testSet(t, color.RGBA{R: 255, A: 255}, color.RGBA{B: 255, A: 255})
	good := Options{FrameCount: 4, Duration: 1, Quality: smallQuality(), Lens: neutralLens()}

	tests := []struct {
		name string
		set  *normalize.ImageSet
		mut  func(*Options)
	}{
		{"nil set", nil, func(o *Options) {}},
		{"zero frames", set, func(o *Options) { o.FrameCount = 0 }},
		{"negative duration", set, func(o *Options) { o.Duration = -1 }},
		{"zero output size", set, func(o *Options) { o.Quality = config.QualityPreset{} }},
		{"tilt sequence length mismatch", set, func(o *Options) { o.TiltSequence = []float64{0} }},
		{"non-positive strip width", set, func(o *Options) { o.Lens = lens.Params{StripWidth: -0.01, Gain: 1} }},
	}

	for _, tt := range tests {
		opts := good
		tt.mut(&opts)
		art, err := Bake(context.Background(), tt.set, opts)
		if !errors.Is(err, ErrPrecondition) {
			t.Errorf("%s: want ErrPrecondition, got %v", tt.name, err)
		}
		if art != nil {
			t.Errorf("%s: artifact emitted despite failed precondition", tt.name)
		}
	}
}

func TestBakeResourceBudget(t *testing.T) {
	set := testSet(t, color.RGBA{R: 255, A: 255}, color.RGBA{B: 255, A: 255})

	_, err := Bake(context.Background(), set, Options{
		FrameCount: 100000,
		Duration:   10,
		Quality:    config.QualityPreset{Width: 4096, Height: 4096, MaxColors: 256},
		Lens:       neutralLens(),
	})
	if !errors.Is(err, ErrResourceExhausted) {
		t.Errorf("want ErrResourceExhausted, got %v", err)
	}
}

// stalledEncoder never reports progress and never finishes on its own.
type stalledEncoder struct{}

func (stalledEncoder) Encode(ctx context.Context, frames <-chan encoder.Frame, total int, onProgress encoder.Progress) ([]byte, string, error) {
	<-ctx.Done()
	return nil, "", ctx.Err()
}

func TestBakeEncoderStartupTimeout(t *testing.T) {
	set := testSet(t, color.RGBA{R: 255, A: 255}, color.RGBA{B: 255, A: 255})

	art, err := Bake(context.Background(), set, Options{
		FrameCount:     4,
		Duration:       1,
		Quality:        smallQuality(),
		Lens:           neutralLens(),
		Encoder:        stalledEncoder{},
		StartupTimeout: 50 * time.Millisecond,
	})
	if !errors.Is(err, ErrEncodingTimeout) {
		t.Errorf("want ErrEncodingTimeout, got %v", err)
	}
	if art != nil {
		t.Error("partial artifact emitted after encoder timeout")
	}
}

// failingEncoder aborts after consuming the first frame.
type failingEncoder struct{}

func (failingEncoder) Encode(ctx context.Context, frames <-chan encoder.Frame, total int, onProgress encoder.Progress) ([]byte, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", ctx.Err()
	case <-frames:
		if onProgress != nil {
			onProgress(1, total)
		}
		return nil, "", errors.New("simulated encoder abort")
	}
}

func TestBakeEncoderAbort(t *testing.T) {
	set := testSet(t, color.RGBA{R: 255, A: 255}, color.RGBA{B: 255, A: 255})

	art, err := Bake(context.Background(), set, Options{
		FrameCount: 4,
		Duration:   1,
		Quality:    smallQuality(),
		Lens:       neutralLens(),
		Encoder:    failingEncoder{},
	})
	if !errors.Is(err, ErrEncodingAborted) {
		t.Errorf("want ErrEncodingAborted, got %v", err)
	}
	if art != nil {
		t.Error("partial artifact emitted after encoder abort")
	}
}

func TestBakeCancellation(t *testing.T) {
	set := testSet(t, color.RGBA{R: 255, A: 255}, color.RGBA{B: 255, A: 255})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	art, err := Bake(ctx, set, Options{
		FrameCount: 8,
		Duration:   1,
		Quality:    smallQuality(),
		Lens:       neutralLens(),
	})
	if err == nil {
		t.Fatal("cancelled bake returned no error")
	}
	if art != nil {
		t.Error("cancelled bake emitted an artifact")
	}
}

func TestBakeProgressMonotonic(t *testing.T) {
	set := testSet(t, color.RGBA{R: 255, A: 255}, color.RGBA{B: 255, A: 255})

	var fractions []float64
	_, err := Bake(context.Background(), set, Options{
		FrameCount: 6,
		Duration:   1,
		Quality:    smallQuality(),
		Lens:       neutralLens(),
		OnProgress: func(f float64) { fractions = append(fractions, f) },
	})
	if err != nil {
		t.Fatalf("Bake: %v", err)
	}

	if len(fractions) == 0 {
		t.Fatal("no progress reported")
	}
	for i := 1; i < len(fractions); i++ {
		if fractions[i] < fractions[i-1] {
			t.Errorf("progress regressed: %f -> %f", fractions[i-1], fractions[i])
		}
	}
	if last := fractions[len(fractions)-1]; last != 1 {
		t.Errorf("final progress = %f, want 1", last)
	}
}

// recordingEncoder verifies the strict frame ordering contract.
type recordingEncoder struct {
	indices []int
}

func (r *recordingEncoder) Encode(ctx context.Context, frames <-chan encoder.Frame, total int, onProgress encoder.Progress) ([]byte, string, error) {
	for f := range frames {
		r.indices = append(r.indices, f.Index)
		if onProgress != nil {
			onProgress(len(r.indices), total)
		}
	}
	return []byte{0x47}, "application/octet-stream", nil
}

func TestBakeFeedsFramesInOrder(t *testing.T) {
	set := testSet(t, color.RGBA{R: 255, A: 255}, color.RGBA{B: 255, A: 255})

	rec := &recordingEncoder{}
	_, err := Bake(context.Background(), set, Options{
		FrameCount: 9,
		Duration:   1,
		Quality:    smallQuality(),
		Lens:       neutralLens(),
		Encoder:    rec,
		Workers:    4, // parallel generation must not leak into feed order
	})
	if err != nil {
		t.Fatalf("Bake: %v", err)
	}

	if len(rec.indices) != 9 {
		t.Fatalf("encoder saw %d frames, want 9", len(rec.indices))
	}
	for i, idx := range rec.indices {
		if idx != i {
			t.Fatalf("frame order broken at position %d: got index %d", i, idx)
		}
	}
}
