package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ampsync/internal/models"
	"github.com/desertthunder/ampsync/internal/tasks"
)

// OfflineStatusReport is the JSON shape of `offline status`.
type OfflineStatusReport struct {
	Offline bool                        `json:"offline"`
	Cached  map[models.ResourceType]int `json:"cached"`
	Queued  map[models.MutationKind]int `json:"queued"`
	Pending []models.OfflineMutation    `json:"pending"`
}

// OfflineStatus shows the offline flag, cache sizes and the mutation log.
func (r *Runner) OfflineStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	report, err := r.offlineReport()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(report, cmd.Bool("pretty"))
	}

	mode := "online"
	if report.Offline {
		mode = "offline"
	}

	r.writePlainHeader("Offline Status")
	r.writePlain("Mode: %s\n\n", mode)

	r.writePlain("Cached records:\n")
	for _, t := range models.ResourceTypes {
		r.writePlain("  %-9s %d\n", t, report.Cached[t])
	}

	r.writePlain("\nQueued mutations: %d likes, %d ratings\n", report.Queued[models.MutationLike], report.Queued[models.MutationRate])
	for _, m := range report.Pending {
		r.writePlain("  #%-4d %-4s %-8s %-12s %d  (%s)\n",
			m.Sequence, m.Kind, m.Type, m.TargetID, m.Value, m.CreatedAt.Local().Format(time.DateTime))
	}
	return nil
}

func (r *Runner) offlineReport() (*OfflineStatusReport, error) {
	offline, err := r.store.OfflineMode()
	if err != nil {
		return nil, err
	}

	cached, err := r.engine.Counts()
	if err != nil {
		return nil, err
	}

	queued := make(map[models.MutationKind]int, 2)
	for _, kind := range []models.MutationKind{models.MutationLike, models.MutationRate} {
		n, err := r.offline.Count(kind)
		if err != nil {
			return nil, err
		}
		queued[kind] = n
	}

	pending, err := r.offline.All()
	if err != nil {
		return nil, err
	}
	if pending == nil {
		pending = []models.OfflineMutation{}
	}

	return &OfflineStatusReport{Offline: offline, Cached: cached, Queued: queued, Pending: pending}, nil
}

// OfflineEnable switches mutations to the offline log.
func (r *Runner) OfflineEnable(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	if err := r.store.SetOfflineMode(true); err != nil {
		return err
	}
	r.logger.Info("offline mode enabled")
	return r.writePlain("✓ Offline mode enabled; likes and ratings will be queued\n")
}

// OfflineDisable switches back to online mode and replays the log unless --no-replay is set.
func (r *Runner) OfflineDisable(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	if err := r.store.SetOfflineMode(false); err != nil {
		return err
	}
	r.logger.Info("offline mode disabled")
	r.writePlain("✓ Offline mode disabled\n")

	if cmd.Bool("no-replay") {
		return nil
	}
	return r.replay(ctx, r.replayOpts(cmd))
}

// OfflineReplay sends every queued mutation to the server.
func (r *Runner) OfflineReplay(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}
	return r.replay(ctx, r.replayOpts(cmd))
}

func (r *Runner) replayOpts(cmd *cli.Command) tasks.ReplayOpts {
	opts := tasks.ReplayOpts{
		NumWorkers: r.config.Offline.Workers,
		RateLimit:  r.config.Offline.RateLimit,
	}
	if cmd.IsSet("workers") {
		opts.NumWorkers = int(cmd.Int("workers"))
	}
	if cmd.IsSet("rate-limit") {
		opts.RateLimit = cmd.Float("rate-limit")
	}
	return opts
}

func (r *Runner) replay(ctx context.Context, opts tasks.ReplayOpts) error {
	progressCh := make(chan tasks.ProgressUpdate, 64)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.CheckConnection, tasks.LoadQueue:
				r.writePlain("%s\n", update.Message)
			case tasks.ReplayMutations:
				r.writePlain("  %s\n", update.Message)
			}
		}
	}()

	result, err := r.mutator.Replay(ctx, progressCh, opts)
	close(progressCh)
	<-done

	if result != nil {
		r.writePlainHeader("Replay Complete")
		r.writePlain("Replayed: %d/%d\n", result.Replayed, result.Total)
		if result.Failed > 0 || result.Skipped > 0 {
			r.writePlain("Failed:   %d\n", result.Failed)
			r.writePlain("Held:     %d (kept in queue behind a failure)\n", result.Skipped)
		}
		for _, res := range result.Results {
			if res.Error != nil {
				r.writePlain("  - %s %s %s: %v\n", res.Mutation.Kind, res.Mutation.Type, res.Mutation.TargetID, res.Error)
			}
		}
	}

	return err
}
