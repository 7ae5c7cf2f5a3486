package main

import (
	"context"
	"time"

	"github.com/desertthunder/olx/internal/formatter"
	"github.com/desertthunder/olx/internal/repositories"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

// CacheShow prints the cached event list of a record and how old it is.
func (r *Runner) CacheShow(ctx context.Context, cmd *cli.Command) error {
	ref := reference(cmd)

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	events, cachedAt, err := repositories.NewEventCacheRepository(db).List(ctx, ref)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(struct {
			Reference string    `json:"reference"`
			CachedAt  time.Time `json:"cached_at"`
			Events    any       `json:"events"`
		}{ref.String(), cachedAt, events}, true)
	}

	zones, err := r.zones()
	if err != nil {
		return err
	}
	text, err := formatter.EventsToText(events, zones)
	if err != nil {
		return err
	}

	r.writePlain("%s: %d entries cached %s\n\n", ref, len(events), humanize.Time(cachedAt))
	_, err = r.output.Write(text)
	return err
}

// CacheClear drops the cached event list of a record.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	ref := reference(cmd)

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repositories.NewEventCacheRepository(db).Clear(ctx, ref); err != nil {
		return err
	}
	r.logger.Info("event cache cleared", "ref", ref)
	r.writePlain("✓ Cleared cached events of %s\n", ref)
	return nil
}
