// Per-chat serialization of turn processing
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pochemuchka/pochemuchka/pkg/models"
	"github.com/pochemuchka/pochemuchka/pkg/utils"
)

const (
	chatQueueSize     = 16
	workerIdleTimeout = 5 * time.Minute
)

type turnResult struct {
	response *models.TurnResponse
	err      error
}

type turnJob struct {
	ctx     context.Context
	content string
	done    chan turnResult
}

type chatWorker struct {
	jobs chan turnJob
	// Submitted-but-unfinished jobs, guarded by Dispatcher.mu. The worker is
	// only reaped at zero, so a sender blocked on a full queue always has a
	// live receiver.
	pending int
}

// Dispatcher serializes turns per chat: each active chat gets one worker
// goroutine draining a FIFO queue, so a chat's turns never interleave while
// different chats proceed concurrently. Workers idle out and are recreated
// on demand.
type Dispatcher struct {
	processor *Processor
	logger    *slog.Logger

	mu      sync.Mutex
	workers map[string]*chatWorker
}

func NewDispatcher(processor *Processor) *Dispatcher {
	return &Dispatcher{
		processor: processor,
		logger:    utils.GetLogger().With("component", "dispatcher"),
		workers:   make(map[string]*chatWorker),
	}
}

// Submit enqueues one turn for its chat and waits for the result. Turns of
// the same chat complete in submission order.
func (d *Dispatcher) Submit(ctx context.Context, chatID, content string) (*models.TurnResponse, error) {
	job := turnJob{
		ctx:     ctx,
		content: content,
		done:    make(chan turnResult, 1),
	}

	d.mu.Lock()
	w, ok := d.workers[chatID]
	if !ok {
		w = &chatWorker{jobs: make(chan turnJob, chatQueueSize)}
		d.workers[chatID] = w
		go d.run(chatID, w)
	}
	w.pending++
	d.mu.Unlock()

	// The send happens outside the lock: a full queue stalls only this
	// chat's callers, never Submits for other chats.
	select {
	case w.jobs <- job:
	case <-ctx.Done():
		d.mu.Lock()
		w.pending--
		d.mu.Unlock()
		return nil, ctx.Err()
	}

	select {
	case res := <-job.done:
		return res.response, res.err
	case <-ctx.Done():
		// The job still runs to completion to keep the chat's order intact;
		// only the caller stops waiting.
		return nil, ctx.Err()
	}
}

func (d *Dispatcher) run(chatID string, w *chatWorker) {
	for {
		select {
		case job := <-w.jobs:
			response, err := d.processor.ProcessTurn(job.ctx, chatID, job.content)
			job.done <- turnResult{response: response, err: err}
			d.mu.Lock()
			w.pending--
			d.mu.Unlock()

		case <-time.After(workerIdleTimeout):
			d.mu.Lock()
			if w.pending == 0 {
				delete(d.workers, chatID)
				d.mu.Unlock()
				d.logger.Debug("chat worker reaped", "chat_id", chatID)
				return
			}
			d.mu.Unlock()
		}
	}
}
