package logic

import "time"

// sampleWindow is a fixed-capacity FIFO of weight samples; once full, the
// oldest sample is overwritten. Not safe for concurrent use; each device's
// poll callback is the only writer.
type sampleWindow struct {
	buf      []WeightSample
	capacity int
	head     int // next write position
	count    int
}

func newSampleWindow(capacity int) *sampleWindow {
	return &sampleWindow{
		buf:      make([]WeightSample, capacity),
		capacity: capacity,
	}
}

func (w *sampleWindow) push(s WeightSample) {
	w.buf[w.head] = s
	w.head = (w.head + 1) % w.capacity
	if w.count < w.capacity {
		w.count++
	}
}

func (w *sampleWindow) len() int {
	return w.count
}

// at returns the i-th sample, oldest first. Caller must ensure i < len().
func (w *sampleWindow) at(i int) WeightSample {
	start := (w.head - w.count + w.capacity) % w.capacity
	return w.buf[(start+i)%w.capacity]
}

// last returns the most recent sample and whether one exists.
func (w *sampleWindow) last() (WeightSample, bool) {
	if w.count == 0 {
		return WeightSample{}, false
	}
	return w.at(w.count - 1), true
}

// since returns all samples strictly newer than the cutoff, oldest first.
func (w *sampleWindow) since(cutoff time.Time) []WeightSample {
	var out []WeightSample
	for i := 0; i < w.count; i++ {
		s := w.at(i)
		if s.Timestamp.After(cutoff) {
			out = append(out, s)
		}
	}
	return out
}
