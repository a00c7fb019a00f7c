package indicator

// window is a fixed-capacity rolling window over float64 samples.
type window struct {
	values []float64
	size   int
	index  int
	filled bool
}

func newWindow(size int) *window {
	return &window{
		values: make([]float64, size),
		size:   size,
	}
}

func (w *window) Add(value float64) {
	w.values[w.index] = value
	w.index = (w.index + 1) % w.size
	if w.index == 0 {
		w.filled = true
	}
}

func (w *window) Len() int {
	if w.filled {
		return w.size
	}
	return w.index
}

// Full reports whether the window holds size samples.
func (w *window) Full() bool {
	return w.filled
}

// Mean 返回窗口内样本均值；窗口未满时对已有样本求均值。
func (w *window) Mean() float64 {
	n := w.Len()
	if n == 0 {
		return 0
	}
	sum := 0.0
	if w.filled {
		for _, v := range w.values {
			sum += v
		}
	} else {
		for _, v := range w.values[:w.index] {
			sum += v
		}
	}
	return sum / float64(n)
}
