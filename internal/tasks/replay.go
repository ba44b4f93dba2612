package tasks

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/desertthunder/ampsync/internal/models"
	"github.com/desertthunder/ampsync/internal/shared"
)

// ReplayOpts contains configuration for replaying the offline log.
type ReplayOpts struct {
	NumWorkers int     // Concurrent workers (default: 4)
	RateLimit  float64 // Requests per second (default: 5)
}

// MutationResult is the outcome of replaying one queued mutation.
type MutationResult struct {
	Mutation models.OfflineMutation
	Skipped  bool  // not attempted because an earlier mutation of the same target failed
	Error    error // set when the server rejected the mutation
}

// ReplayResult summarises a replay run.
type ReplayResult struct {
	Total    int
	Replayed int
	Failed   int
	Skipped  int
	Results  []MutationResult
}

// chain is the ordered run of mutations for one target.
type chain []models.OfflineMutation

// Replay sends every queued mutation to the server once connectivity is confirmed.
//
// Mutations are grouped by target and each group is replayed in log order by a single worker,
// so the last write for a target always wins. A failed mutation stays queued and holds back
// the rest of its group; other groups continue.
func (m *Mutator) Replay(ctx context.Context, prog chan<- ProgressUpdate, opts ReplayOpts) (*ReplayResult, error) {
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	sendProgress(prog, checkConnectionUpdate())
	if m.pinger != nil {
		if _, err := m.pinger.Ping(ctx); err != nil {
			return nil, fmt.Errorf("%w: server not reachable: %v", shared.ErrServiceUnavailable, err)
		}
	}

	pending, err := m.log.All()
	if err != nil {
		return nil, fmt.Errorf("failed to load offline log: %w", err)
	}

	result := &ReplayResult{Total: len(pending), Results: make([]MutationResult, 0, len(pending))}
	if len(pending) == 0 {
		sendProgress(prog, replayDoneUpdate(result))
		return result, nil
	}

	sess, err := m.sessions.Session(ctx)
	if err != nil {
		return nil, err
	}

	chains := groupByTarget(pending)
	sendProgress(prog, loadQueueUpdate(len(pending), len(chains)))

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan chain, len(chains))
	results := make(chan MutationResult, len(pending))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go m.replayWorker(ctx, &wg, *sess, limiter, jobs, results)
	}

	for _, c := range chains {
		jobs <- c
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		switch {
		case res.Skipped:
			result.Skipped++
			sendProgress(prog, mutationSkippedUpdate(completed, result.Total, res.Mutation))
		case res.Error != nil:
			result.Failed++
			sendProgress(prog, mutationFailedUpdate(completed, result.Total, res.Mutation, res.Error))
		default:
			result.Replayed++
			sendProgress(prog, mutationReplayedUpdate(completed, result.Total, res.Mutation))
		}
	}

	m.logger.Info("replay finished", "replayed", result.Replayed, "failed", result.Failed, "skipped", result.Skipped)
	sendProgress(prog, replayDoneUpdate(result))

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// replayWorker replays whole chains from jobs, stopping a chain at its first failure.
func (m *Mutator) replayWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	sess models.Session,
	limiter *rate.Limiter,
	jobs <-chan chain,
	results chan<- MutationResult,
) {
	defer wg.Done()

	for c := range jobs {
		failed := false
		for _, mutation := range c {
			if failed || ctx.Err() != nil {
				results <- MutationResult{Mutation: mutation, Skipped: true}
				continue
			}

			if err := limiter.Wait(ctx); err != nil {
				results <- MutationResult{Mutation: mutation, Skipped: true}
				continue
			}

			if err := m.send(ctx, sess, mutation); err != nil {
				failed = true
				results <- MutationResult{Mutation: mutation, Error: err}
				continue
			}

			if err := m.log.Remove(mutation.ID); err != nil {
				failed = true
				results <- MutationResult{Mutation: mutation, Error: fmt.Errorf("sent but not removed from log: %w", err)}
				continue
			}

			results <- MutationResult{Mutation: mutation}
		}
	}
}

// groupByTarget splits the log into per-target chains, keeping log order inside each chain
// and ordering chains by their first mutation.
func groupByTarget(mutations []models.OfflineMutation) []chain {
	index := make(map[string]int)
	var chains []chain

	for _, mutation := range mutations {
		key := string(mutation.Type) + ":" + mutation.TargetID
		i, ok := index[key]
		if !ok {
			i = len(chains)
			index[key] = i
			chains = append(chains, nil)
		}
		chains[i] = append(chains[i], mutation)
	}
	return chains
}
