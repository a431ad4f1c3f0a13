package mqtt

// pendingMsg is a serialized publish held until the broker is reachable.
type pendingMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer is a fixed-capacity FIFO of publishes made while disconnected.
// When full the oldest message is overwritten. Not safe for concurrent use.
type ringBuffer struct {
	buf     []pendingMsg
	head    int // next write position
	count   int
	dropped int // overwritten since the last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ringBuffer{buf: make([]pendingMsg, capacity)}
}

// push stores msg and reports whether an older message was overwritten.
func (r *ringBuffer) push(msg pendingMsg) bool {
	r.buf[r.head] = msg
	r.head = (r.head + 1) % len(r.buf)
	if r.count == len(r.buf) {
		r.dropped++
		return true
	}
	r.count++
	return false
}

// drain returns the buffered messages oldest first, with the number dropped
// since the previous drain, and empties the buffer.
func (r *ringBuffer) drain() ([]pendingMsg, int) {
	dropped := r.dropped
	r.dropped = 0
	if r.count == 0 {
		return nil, dropped
	}

	out := make([]pendingMsg, r.count)
	start := (r.head - r.count + len(r.buf)) % len(r.buf)
	for i := range out {
		out[i] = r.buf[(start+i)%len(r.buf)]
	}
	clear(r.buf)
	r.count = 0
	r.head = 0
	return out, dropped
}

func (r *ringBuffer) len() int {
	return r.count
}
