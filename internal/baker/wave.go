package baker

// WaveAmplitude is the tilt extreme of the synthetic sweep. Just inside 1.0
// so the extremes keep a sliver of blend instead of pinning to a single
// image.
const WaveAmplitude = 0.95

// TiltSequence produces the triangle wave driving a bake: one full
// back-and-forth cycle from -amplitude to +amplitude and back across count
// samples. Normalized time runs over [0,1) so the last frame does not repeat
// the first and the loop plays seamlessly.
func TiltSequence(count int, amplitude float64) []float64 {
	seq := make([]float64, count)
	for i := range seq {
		t := float64(i) / float64(count)
		if t <= 0.5 {
			seq[i] = -amplitude + t*4*amplitude
		} else {
			seq[i] = 3*amplitude - t*4*amplitude
		}
	}
	return seq
}
