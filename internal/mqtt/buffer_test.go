package mqtt

import (
	"testing"
)

func TestRingBufferEmptyDrain(t *testing.T) {
	rb := newRingBuffer(10)
	got, dropped := rb.drain()
	if got != nil {
		t.Errorf("expected nil from empty drain, got %d items", len(got))
	}
	if dropped != 0 {
		t.Errorf("expected 0 dropped, got %d", dropped)
	}
}

func TestRingBufferPushAndDrain(t *testing.T) {
	rb := newRingBuffer(10)
	for i := 0; i < 5; i++ {
		if rb.push(pendingMsg{topic: "t", payload: []byte{byte(i)}}) {
			t.Fatalf("push %d reported a drop", i)
		}
	}

	got, _ := rb.drain()
	if len(got) != 5 {
		t.Fatalf("expected 5 items, got %d", len(got))
	}
	for i := 0; i < 5; i++ {
		if got[i].payload[0] != byte(i) {
			t.Errorf("item %d: expected payload %d, got %d", i, i, got[i].payload[0])
		}
	}

	// Second drain should be empty
	got2, _ := rb.drain()
	if got2 != nil {
		t.Errorf("expected nil from second drain, got %d items", len(got2))
	}
}

func TestRingBufferOverflow(t *testing.T) {
	const size = 5
	rb := newRingBuffer(size)

	// Push 0..7, the buffer keeps the most recent 5 (3..7)
	drops := 0
	for i := 0; i < size+3; i++ {
		if rb.push(pendingMsg{topic: "t", payload: []byte{byte(i)}}) {
			drops++
		}
	}
	if drops != 3 {
		t.Errorf("expected 3 drops reported, got %d", drops)
	}

	got, dropped := rb.drain()
	if len(got) != size {
		t.Fatalf("expected %d items, got %d", size, len(got))
	}
	if dropped != 3 {
		t.Errorf("expected drain to report 3 dropped, got %d", dropped)
	}
	for i := 0; i < size; i++ {
		want := byte(i + 3)
		if got[i].payload[0] != want {
			t.Errorf("item %d: expected payload %d, got %d", i, want, got[i].payload[0])
		}
	}

	if _, dropped := rb.drain(); dropped != 0 {
		t.Errorf("dropped count should reset after drain, got %d", dropped)
	}
}

func TestRingBufferMultipleCycles(t *testing.T) {
	rb := newRingBuffer(5)

	for cycle := 0; cycle < 3; cycle++ {
		for i := 0; i < 3; i++ {
			rb.push(pendingMsg{topic: "t", payload: []byte{byte(cycle*10 + i)}})
		}
		got, _ := rb.drain()
		if len(got) != 3 {
			t.Fatalf("cycle %d: expected 3 items, got %d", cycle, len(got))
		}
		for i := 0; i < 3; i++ {
			if want := byte(cycle*10 + i); got[i].payload[0] != want {
				t.Errorf("cycle %d item %d: expected %d, got %d", cycle, i, want, got[i].payload[0])
			}
		}
	}
}

func TestRingBufferLen(t *testing.T) {
	rb := newRingBuffer(3)
	if rb.len() != 0 {
		t.Errorf("expected len 0, got %d", rb.len())
	}
	for i := 0; i < 5; i++ {
		rb.push(pendingMsg{topic: "t"})
	}
	if rb.len() != 3 {
		t.Errorf("expected len capped at 3, got %d", rb.len())
	}
	rb.drain()
	if rb.len() != 0 {
		t.Errorf("expected len 0 after drain, got %d", rb.len())
	}
}

func TestRingBufferPreservesFields(t *testing.T) {
	rb := newRingBuffer(10)
	rb.push(pendingMsg{topic: TopicSystem, payload: []byte("x"), qos: 1, retained: true})

	got, _ := rb.drain()
	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
	m := got[0]
	if m.topic != TopicSystem || string(m.payload) != "x" || m.qos != 1 || !m.retained {
		t.Errorf("fields not preserved: %+v", m)
	}
}

func TestRingBufferMinimumCapacity(t *testing.T) {
	rb := newRingBuffer(0)
	rb.push(pendingMsg{topic: "a"})
	rb.push(pendingMsg{topic: "b"})
	got, dropped := rb.drain()
	if len(got) != 1 || got[0].topic != "b" || dropped != 1 {
		t.Errorf("got %+v dropped=%d", got, dropped)
	}
}
