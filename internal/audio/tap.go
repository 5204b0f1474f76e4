package audio

import "math"

// tap keeps the most recent mono output of one voice so its level can be
// measured. It is only touched with the device lock held.
type tap struct {
	buf []float64
	pos int
}

func newTap(size int) *tap {
	if size < 1 {
		size = 1
	}
	return &tap{buf: make([]float64, size)}
}

func (t *tap) write(samples [][2]float64) {
	for _, s := range samples {
		t.buf[t.pos] = (s[0] + s[1]) / 2
		t.pos = (t.pos + 1) % len(t.buf)
	}
}

// rms of the last n samples.
func (t *tap) rms(n int) float64 {
	if n > len(t.buf) {
		n = len(t.buf)
	}
	if n < 1 {
		return 0
	}
	start := (t.pos - n + len(t.buf)) % len(t.buf)
	sum := 0.0
	for i := 0; i < n; i++ {
		v := t.buf[(start+i)%len(t.buf)]
		sum += v * v
	}
	return math.Sqrt(sum / float64(n))
}
