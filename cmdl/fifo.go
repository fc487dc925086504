package cmdl

// fifo is the receive ring between the serial interrupt and the run loop.
// One slot stays unused to tell full from empty. Callers serialize access
// with a critical section.
type fifo struct {
	buf   []byte
	read  int
	write int
}

func newFifo(capacity int) *fifo {
	return &fifo{buf: make([]byte, capacity+1)}
}

// push appends b, reporting false when the ring is full
func (f *fifo) push(b byte) bool {
	next := (f.write + 1) % len(f.buf)
	if next == f.read {
		return false
	}
	f.buf[f.write] = b
	f.write = next
	return true
}

// drain moves up to len(p) bytes into p
func (f *fifo) drain(p []byte) int {
	n := 0
	for n < len(p) && f.read != f.write {
		p[n] = f.buf[f.read]
		f.read = (f.read + 1) % len(f.buf)
		n++
	}
	return n
}

func (f *fifo) available() int {
	if f.write >= f.read {
		return f.write - f.read
	}
	return len(f.buf) - f.read + f.write
}

func (f *fifo) reset() {
	f.read = 0
	f.write = 0
}
