package voice

import (
	"log/slog"
	"sync"
)

// playerQueueSize is the number of pending utterances the player holds
// before Enqueue starts dropping. One utterance is one synthesized buffer.
const playerQueueSize = 16

// Player plays audio buffers in arrival order on a single logical output
// track. Buffers are handed to whichever connection sink is currently
// attached; utterances are never mixed — a buffer enqueued while another is
// still being delivered waits its turn.
//
// All methods are safe for concurrent use.
type Player struct {
	mu       sync.Mutex
	sink     chan<- []byte
	sinkDone <-chan struct{}

	queue     chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewPlayer creates a Player and starts its delivery loop.
func NewPlayer() *Player {
	p := &Player{
		queue: make(chan []byte, playerQueueSize),
		done:  make(chan struct{}),
	}
	go p.run()
	return p
}

// Attach points the player at a new connection sink. Buffers delivered from
// now on go to sink; delivery stops following done when the connection is
// torn down. Replaces any previous sink.
func (p *Player) Attach(sink chan<- []byte, done <-chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sink = sink
	p.sinkDone = done
}

// Detach removes the current sink. Buffers delivered while detached are
// dropped.
func (p *Player) Detach() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sink = nil
	p.sinkDone = nil
}

// Enqueue queues an audio buffer for playback. Returns false if the queue is
// full and the buffer was dropped.
func (p *Player) Enqueue(buf []byte) bool {
	if len(buf) == 0 {
		return false
	}
	select {
	case p.queue <- buf:
		return true
	default:
		return false
	}
}

// Close stops the delivery loop. Buffers still queued are discarded.
func (p *Player) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
	})
}

// run delivers queued buffers to the attached sink, one at a time.
func (p *Player) run() {
	for {
		select {
		case <-p.done:
			return
		case buf := <-p.queue:
			p.deliver(buf)
		}
	}
}

// deliver hands one buffer to the current sink. The buffer is dropped when
// no sink is attached or the sink's connection terminates mid-delivery, so a
// torn-down channel never receives stale audio.
func (p *Player) deliver(buf []byte) {
	p.mu.Lock()
	sink, sinkDone := p.sink, p.sinkDone
	p.mu.Unlock()

	if sink == nil {
		slog.Debug("voice: dropping audio buffer, no active session", "bytes", len(buf))
		return
	}

	select {
	case sink <- buf:
	case <-sinkDone:
		slog.Debug("voice: dropping audio buffer, connection gone", "bytes", len(buf))
	case <-p.done:
	}
}
