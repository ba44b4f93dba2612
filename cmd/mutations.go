package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ampsync/internal/models"
	"github.com/desertthunder/ampsync/internal/shared"
)

// Like sets or clears the like flag on a record.
func (r *Runner) Like(ctx context.Context, cmd *cli.Command) error {
	kind, err := models.ParseResourceType(cmd.String("type"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
	}

	if err := r.open(); err != nil {
		return err
	}

	id, liked := cmd.String("id"), !cmd.Bool("unset")
	if _, _, err := models.Final(r.mutator.Like(ctx, id, liked, kind)); err != nil {
		return err
	}

	verb := "Liked"
	if !liked {
		verb = "Unliked"
	}
	return r.reportMutation(fmt.Sprintf("%s %s %s", verb, kind, id))
}

// Rate sets the rating of a record.
func (r *Runner) Rate(ctx context.Context, cmd *cli.Command) error {
	kind, err := models.ParseResourceType(cmd.String("type"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
	}

	rating := int(cmd.Int("rating"))
	if err := models.ValidateRating(rating); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
	}

	if err := r.open(); err != nil {
		return err
	}

	id := cmd.String("id")
	if _, _, err := models.Final(r.mutator.Rate(ctx, id, rating, kind)); err != nil {
		return err
	}

	return r.reportMutation(fmt.Sprintf("Rated %s %s %d/5", kind, id, rating))
}

func (r *Runner) reportMutation(summary string) error {
	offline, err := r.store.OfflineMode()
	if err != nil {
		return err
	}
	if offline {
		return r.writePlain("✓ %s (queued, offline mode)\n", summary)
	}
	return r.writePlain("✓ %s\n", summary)
}
