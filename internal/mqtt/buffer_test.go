package mqtt

import "testing"

func msg(topic string) bufferedMsg {
	return bufferedMsg{topic: topic, payload: []byte("x")}
}

func TestRingBufferPushAndDrain(t *testing.T) {
	r := newRingBuffer(4)

	r.push(msg("a"))
	r.push(msg("b"))
	r.push(msg("c"))
	if r.len() != 3 {
		t.Fatalf("len = %d, want 3", r.len())
	}

	out := r.drainAll()
	if len(out) != 3 {
		t.Fatalf("drained %d, want 3", len(out))
	}
	for i, want := range []string{"a", "b", "c"} {
		if out[i].topic != want {
			t.Errorf("out[%d] = %q, want %q", i, out[i].topic, want)
		}
	}
	if r.len() != 0 {
		t.Errorf("len after drain = %d, want 0", r.len())
	}
}

func TestRingBufferDrainEmpty(t *testing.T) {
	r := newRingBuffer(4)
	if out := r.drainAll(); out != nil {
		t.Errorf("drainAll on empty buffer = %v, want nil", out)
	}
}

func TestRingBufferOverwritesOldest(t *testing.T) {
	r := newRingBuffer(3)

	r.push(msg("a"))
	r.push(msg("b"))
	r.push(msg("c"))
	r.push(msg("d")) // evicts a
	r.push(msg("e")) // evicts b

	if r.len() != 3 {
		t.Fatalf("len = %d, want 3", r.len())
	}

	out := r.drainAll()
	for i, want := range []string{"c", "d", "e"} {
		if out[i].topic != want {
			t.Errorf("out[%d] = %q, want %q", i, out[i].topic, want)
		}
	}
}

func TestRingBufferReusableAfterDrain(t *testing.T) {
	r := newRingBuffer(2)

	r.push(msg("a"))
	r.drainAll()

	r.push(msg("b"))
	r.push(msg("c"))
	out := r.drainAll()
	if len(out) != 2 || out[0].topic != "b" || out[1].topic != "c" {
		t.Errorf("unexpected drain result: %v", out)
	}
}
