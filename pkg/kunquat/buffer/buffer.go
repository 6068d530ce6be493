// Package buffer provides fixed-size per-render-chunk scratch buffers.
package buffer

// WorkBuffer is a fixed-size float scratchpad used by the signal-flow
// executor. Its size never changes after creation; content is reused
// across chunks by clearing the active range rather than reallocating,
// mirroring the pre-allocated work/temp buffers a process.Context hands
// out per block.
type WorkBuffer struct {
	contents  []float32
	constFrom int32 // index at and after which contents is constant
	valid     bool
	final     bool
}

// New creates a WorkBuffer of the given size, initially invalid.
func New(size int) *WorkBuffer {
	return &WorkBuffer{
		contents:  make([]float32, size),
		constFrom: int32(size),
	}
}

// Size returns the fixed capacity of the buffer.
func (w *WorkBuffer) Size() int { return len(w.contents) }

// Raw exposes the backing slice for processors that need direct access.
func (w *WorkBuffer) Raw() []float32 { return w.contents }

// IsValid reports whether the buffer currently holds meaningful data.
func (w *WorkBuffer) IsValid() bool { return w.valid }

// IsFinal reports whether the buffer has reached a terminal silent state.
func (w *WorkBuffer) IsFinal() bool { return w.final }

// ConstFrom returns the index at and after which all samples equal the
// sample immediately before it.
func (w *WorkBuffer) ConstFrom() int32 { return w.constFrom }

// Invalidate marks the buffer as not holding meaningful data. It does not
// touch contents; the next Clear/MixFrom call re-establishes validity.
func (w *WorkBuffer) Invalidate() {
	w.valid = false
	w.final = false
	w.constFrom = int32(len(w.contents))
}

// Clear zeroes [start, stop) and marks that range constant-zero.
func (w *WorkBuffer) Clear(start, stop int) {
	if stop > len(w.contents) {
		stop = len(w.contents)
	}
	for i := start; i < stop; i++ {
		w.contents[i] = 0
	}
	w.valid = true
	if start <= 0 {
		w.constFrom = 0
	}
}

// MarkValid marks the buffer as holding meaningful data without touching
// contents, for callers (e.g. voice control trajectory fills) that write
// every sample themselves rather than going through Clear/MixFrom.
func (w *WorkBuffer) MarkValid() {
	w.valid = true
}

// SetFinal sets or clears the terminal-silence flag.
func (w *WorkBuffer) SetFinal(final bool) { w.final = final }

// MixFrom adds source's [start, stop) range into this buffer's same range.
// If source is constant over the whole range (ConstFrom() <= start), the
// constant contribution is added without reading every sample.
func (w *WorkBuffer) MixFrom(source *WorkBuffer, start, stop int) {
	if stop > len(w.contents) {
		stop = len(w.contents)
	}
	if stop > len(source.contents) {
		stop = len(source.contents)
	}
	if !source.valid {
		return
	}

	if int(source.constFrom) <= start && start < stop {
		constVal := source.contents[start]
		for i := start; i < stop; i++ {
			w.contents[i] += constVal
		}
	} else {
		for i := start; i < stop; i++ {
			w.contents[i] += source.contents[i]
		}
	}

	w.valid = true
	if start <= int(w.constFrom) {
		// A mix invalidates any constant-tail claim below stop unless the
		// source was itself constant over the same tail.
		if int(source.constFrom) <= start {
			if w.constFrom > int32(start) {
				w.constFrom = int32(start)
			}
		} else {
			w.constFrom = int32(stop)
		}
	}
}

// MarkConstFrom records that the buffer is known constant from idx onward.
// Processors call this after filling a buffer with a steady-state value.
func (w *WorkBuffer) MarkConstFrom(idx int) {
	if idx < 0 {
		idx = 0
	}
	w.constFrom = int32(idx)
}
