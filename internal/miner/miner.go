// Package miner runs proof-of-work searches off the receive path, so a
// mining client keeps draining its connection while it grinds hashes.
package miner

import (
	"context"
	"sync"

	cmtlog "github.com/cometbft/cometbft/libs/log"

	"mining-game/internal/pow"
	"mining-game/internal/protocol"
)

// searchStart is the first nonce every search tries.
const searchStart = 1

// Result is a solved challenge ready to submit.
type Result struct {
	Challenge protocol.Challenge
	Nonce     uint64
	Digest    string
}

// Pool mines challenges on a fixed set of workers. Challenges go in through
// Enqueue, solutions come out of Results; searches die with the context the
// pool was started with.
type Pool struct {
	log     cmtlog.Logger
	jobs    chan protocol.Challenge
	results chan Result
	wg      sync.WaitGroup
}

// NewPool starts workers goroutines mining from an internal queue. Results
// is closed once ctx ends and all workers have drained out.
func NewPool(ctx context.Context, workers int, log cmtlog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = cmtlog.NewNopLogger()
	}
	p := &Pool{
		log:     log,
		jobs:    make(chan protocol.Challenge, workers*4),
		results: make(chan Result, workers),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	go func() {
		p.wg.Wait()
		close(p.results)
	}()
	return p
}

// Enqueue queues a challenge for mining. When the queue is full the
// challenge is dropped rather than stalling the caller's receive loop.
func (p *Pool) Enqueue(ch protocol.Challenge) bool {
	select {
	case p.jobs <- ch:
		return true
	default:
		p.log.Error("mining queue full, dropping challenge", "message_id", ch.MessageID)
		return false
	}
}

// Results delivers solved challenges.
func (p *Pool) Results() <-chan Result {
	return p.results
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ch := <-p.jobs:
			nonce, digest, err := pow.Search(ctx, ch.Message, ch.Difficulty, searchStart)
			if err != nil {
				if ctx.Err() == nil {
					p.log.Error("search failed",
						"worker", id, "message_id", ch.MessageID, "difficulty", ch.Difficulty, "err", err)
				}
				continue
			}
			p.log.Info("challenge solved",
				"worker", id, "message_id", ch.MessageID, "nonce", nonce, "digest", digest)
			select {
			case p.results <- Result{Challenge: ch, Nonce: nonce, Digest: digest}:
			case <-ctx.Done():
				return
			}
		}
	}
}
