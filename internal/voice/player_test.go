package voice

import (
	"testing"
	"time"

	audiomock "github.com/MrWong99/helmholtz/pkg/audio/mock"
)

func waitPlayed(t *testing.T, conn *audiomock.Connection, want int) [][]byte {
	t.Helper()
	deadline := time.After(time.Second)
	var played [][]byte
	for {
		played = append(played, conn.Played()...)
		if len(played) >= want {
			return played
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %d buffers, got %d", want, len(played))
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestPlayer_DeliversInOrder(t *testing.T) {
	t.Parallel()

	p := NewPlayer()
	defer p.Close()
	conn := audiomock.NewConnection("chan-1")
	p.Attach(conn.OutputStream(), conn.Done())

	for _, s := range []string{"first", "second", "third"} {
		if !p.Enqueue([]byte(s)) {
			t.Fatalf("Enqueue(%q) returned false", s)
		}
	}

	played := waitPlayed(t, conn, 3)
	for i, want := range []string{"first", "second", "third"} {
		if string(played[i]) != want {
			t.Errorf("played[%d] = %q, want %q", i, played[i], want)
		}
	}
}

func TestPlayer_DropsWhileDetached(t *testing.T) {
	t.Parallel()

	p := NewPlayer()
	defer p.Close()

	p.Enqueue([]byte("nobody listening"))
	time.Sleep(20 * time.Millisecond)

	conn := audiomock.NewConnection("chan-1")
	p.Attach(conn.OutputStream(), conn.Done())
	time.Sleep(20 * time.Millisecond)

	if played := conn.Played(); len(played) != 0 {
		t.Errorf("buffer enqueued before attach was delivered: %d buffers", len(played))
	}
}

func TestPlayer_StopsDeliveryWhenConnectionTerminates(t *testing.T) {
	t.Parallel()

	p := NewPlayer()
	defer p.Close()
	conn := audiomock.NewConnection("chan-1")
	p.Attach(conn.OutputStream(), conn.Done())

	conn.Disconnect()
	p.Enqueue([]byte("stale"))
	time.Sleep(20 * time.Millisecond)

	// The buffer may land in the channel buffer before the done signal is
	// observed, but delivery must not block the loop.
	if !p.Enqueue([]byte("next")) {
		t.Error("player loop blocked after connection termination")
	}
}

func TestPlayer_EnqueueEmptyRejected(t *testing.T) {
	t.Parallel()

	p := NewPlayer()
	defer p.Close()

	if p.Enqueue(nil) {
		t.Error("Enqueue(nil) = true, want false")
	}
	if p.Enqueue([]byte{}) {
		t.Error("Enqueue(empty) = true, want false")
	}
}

func TestPlayer_EnqueueFullQueueRejected(t *testing.T) {
	t.Parallel()

	p := NewPlayer()
	defer p.Close()

	// Unbuffered sink with no reader wedges the delivery loop so the queue
	// fills up behind it.
	sink := make(chan []byte)
	done := make(chan struct{})
	p.Attach(sink, done)

	accepted := 0
	for i := 0; i < 2*playerQueueSize; i++ {
		if p.Enqueue([]byte{byte(i)}) {
			accepted++
		}
	}
	if accepted > playerQueueSize+1 {
		t.Errorf("accepted %d buffers with a wedged sink, queue size %d", accepted, playerQueueSize)
	}
	if accepted < playerQueueSize {
		t.Errorf("accepted only %d buffers, queue size %d", accepted, playerQueueSize)
	}
}
