package llm

import (
	"context"
	"errors"
	"sync"
)

var errAborted = errors.New("stream aborted")

// streamGuard holds the cancel handle of the running stream.
type streamGuard struct {
	mu     sync.Mutex
	seq    uint64
	cancel context.CancelCauseFunc
}

// begin derives a cancellable context for a new stream. done must be called
// when the stream ends.
func (g *streamGuard) begin(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(parent)

	g.mu.Lock()
	g.seq++
	id := g.seq
	g.cancel = cancel
	g.mu.Unlock()

	return ctx, func() {
		g.mu.Lock()
		if g.seq == id {
			g.cancel = nil
		}
		g.mu.Unlock()
		cancel(nil)
	}
}

// abort cancels the running stream, if any.
func (g *streamGuard) abort() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancel != nil {
		g.cancel(errAborted)
		g.cancel = nil
	}
}

// wasAborted reports whether ctx ended through abort.
func wasAborted(ctx context.Context) bool {
	return errors.Is(context.Cause(ctx), errAborted)
}

// aggregator accumulates deltas and guarantees a single complete call.
type aggregator struct {
	onChunk  ChunkFunc
	text     []byte
	complete bool
}

func (a *aggregator) add(delta string) {
	if delta == "" || a.complete {
		return
	}
	a.text = append(a.text, delta...)
	a.onChunk(string(a.text), false)
}

func (a *aggregator) finish() {
	if a.complete {
		return
	}
	a.complete = true
	a.onChunk(string(a.text), true)
}

func (a *aggregator) String() string {
	return string(a.text)
}
