package scheduler

import (
	"time"

	"github.com/kmoganti/stock-trading-system-sub001/services/scanner"
)

// DefaultJobs is the standing job set: a high-frequency intraday job, an
// hourly swing job, an end-of-day job for long-horizon categories, and a
// daily comprehensive job covering everything to reconcile drift. Jobs are
// independent; overlapping symbol sets are deduplicated by the data cache,
// not by job isolation.
func DefaultJobs() []JobSpec {
	return []JobSpec{
		{
			ID:   "intraday",
			Cron: "*/15 9-15 * * 1-5",
			Categories: []scanner.Category{
				scanner.CategoryDayTrading,
				scanner.CategoryShortSelling,
			},
			Coalesce:     true,
			MisfireGrace: 5 * time.Minute,
		},
		{
			ID:   "swing",
			Cron: "0 9-16 * * 1-5",
			Categories: []scanner.Category{
				scanner.CategorySwingShort,
				scanner.CategorySwingLong,
			},
			Coalesce:     true,
			MisfireGrace: 15 * time.Minute,
		},
		{
			ID:   "eod",
			Cron: "30 16 * * 1-5",
			Categories: []scanner.Category{
				scanner.CategoryLongTerm,
			},
			Coalesce:     true,
			MisfireGrace: time.Hour,
		},
		{
			ID:           "comprehensive",
			Cron:         "0 8 * * *",
			Categories:   scanner.AllCategories(),
			Coalesce:     true,
			MisfireGrace: time.Hour,
		},
	}
}

// RegisterDefaultJobs registers the standing job set on the registry.
func RegisterDefaultJobs(r *ScheduleRegistry) error {
	for _, spec := range DefaultJobs() {
		if err := r.Register(spec); err != nil {
			return err
		}
	}
	return nil
}
