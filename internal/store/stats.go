package store

import (
	"context"
	"fmt"
	"time"
)

// StatsRepository maintains the processing_stats table: one row per
// calendar date with a running count of processed jobs. The daemon
// increments it once per successfully completed job; failed jobs are
// not counted.
type StatsRepository struct {
	s *Store
}

// IncrementToday bumps today's total_processed counter, creating the
// row if it doesn't exist yet.
func (r *StatsRepository) IncrementToday(ctx context.Context, now time.Time) error {
	date := now.UTC().Format("2006-01-02")
	return r.s.withLock(func() error {
		_, err := r.s.db.ExecContext(ctx, `INSERT INTO processing_stats (date, total_processed) VALUES (?, 1)
			ON CONFLICT(date) DO UPDATE SET total_processed = total_processed + 1`, date)
		if err != nil {
			return fmt.Errorf("incrementing processing stats for %s: %w", date, err)
		}
		return nil
	})
}

// DailyCount is one row of the daily-statistics report.
type DailyCount struct {
	Date           string
	TotalProcessed int
}

// Range returns every recorded daily count between from and to,
// inclusive, ordered by date.
func (r *StatsRepository) Range(ctx context.Context, from, to time.Time) ([]DailyCount, error) {
	var out []DailyCount
	err := r.s.withLock(func() error {
		rows, err := r.s.db.QueryContext(ctx,
			`SELECT date, total_processed FROM processing_stats WHERE date >= ? AND date <= ? ORDER BY date`,
			from.UTC().Format("2006-01-02"), to.UTC().Format("2006-01-02"))
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var d DailyCount
			if err := rows.Scan(&d.Date, &d.TotalProcessed); err != nil {
				return err
			}
			out = append(out, d)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("reading processing stats range: %w", err)
	}
	return out, nil
}
