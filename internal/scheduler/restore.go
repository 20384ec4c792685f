package scheduler

import (
	"context"

	"github.com/rs/zerolog"
)

// RecordLister is the slice of the record store RestoreAll needs.
type RecordLister interface {
	List(ctx context.Context) ([]Record, error)
}

// RestoreAll repopulates the registry from persisted schedule records. Run
// once at process start, before the server accepts management calls.
//
// Each record is registered under its mirrored job id, so a restart yields
// the same ids the admin console already knows, then started or stopped to
// match the desired running flag. Records missing cron expression, kind or
// job id are skipped; a malformed record must not block restoring the rest.
func RestoreAll(ctx context.Context, store RecordLister, reg *Registry, logger zerolog.Logger) int {
	log := logger.With().Str("component", "scheduler-restore").Logger()

	records, err := store.List(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load schedule records, skipping restore")
		return 0
	}

	restored := 0
	for _, rec := range records {
		if rec.CronExpr == "" || rec.JobKind == "" || rec.JobID == "" {
			log.Warn().
				Str("record_id", rec.ID).
				Msg("Skipping malformed schedule record")
			continue
		}

		id, err := reg.Register(rec.CronExpr, rec.JobKind, rec.JobID)
		if err != nil {
			log.Warn().
				Err(err).
				Str("record_id", rec.ID).
				Str("cron", rec.CronExpr).
				Msg("Skipping unrestorable schedule record")
			continue
		}

		if rec.Running {
			reg.Start(id)
		} else {
			reg.Stop(id)
		}
		restored++
	}

	log.Info().Int("restored", restored).Int("total", len(records)).Msg("Schedule restore completed")
	return restored
}
