// Package playback plays received audio clips strictly in arrival
// order. A single consumer drains the queue, so clips never overlap
// even when responses arrive faster than they play.
package playback

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wicara-ai/wicara/domain/entities"
)

// Player plays one decoded audio clip to completion. Play returns when
// the clip finishes or ctx is cancelled.
type Player interface {
	Play(ctx context.Context, audio []byte) error
}

// Queue is a FIFO of audio clips with one consumer. Enqueue never
// blocks; a failed clip is logged and the queue advances to the next.
type Queue struct {
	player Player
	logger *zap.Logger

	mu      sync.Mutex
	items   [][]byte
	playing bool
	cancel  context.CancelFunc

	// idle is closed each time the consumer drains the queue, mainly
	// for tests that need to wait for quiescence.
	idle chan struct{}
}

// NewQueue creates an empty queue draining into player.
func NewQueue(player Player, logger *zap.Logger) *Queue {
	q := &Queue{
		player: player,
		logger: logger,
		idle:   make(chan struct{}),
	}
	close(q.idle)
	return q
}

// Enqueue appends one clip and starts the consumer if it is not
// already running.
func (q *Queue) Enqueue(audio []byte) {
	q.mu.Lock()
	q.items = append(q.items, audio)
	if !q.playing {
		q.playing = true
		q.idle = make(chan struct{})
		go q.drain()
	}
	q.mu.Unlock()
}

// Clear stops the clip being played and drops everything pending.
// Pending text output elsewhere is unaffected.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.items = nil
	cancel := q.cancel
	q.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Len returns the number of clips waiting (excluding the one playing).
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Wait blocks until the consumer has drained the queue.
func (q *Queue) Wait() {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()
	<-idle
}

func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.playing = false
			q.cancel = nil
			close(q.idle)
			q.mu.Unlock()
			return
		}
		audio := q.items[0]
		q.items = q.items[1:]
		ctx, cancel := context.WithCancel(context.Background())
		q.cancel = cancel
		q.mu.Unlock()

		if err := q.player.Play(ctx, audio); err != nil && ctx.Err() == nil {
			q.logger.Warn("Clip playback failed, advancing",
				zap.Error(&entities.PlaybackError{Err: err}))
		}
		cancel()
	}
}
