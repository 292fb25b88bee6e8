package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iperka/paporg-sub001/internal/model"
)

// ProcessedEmailRepository tracks which (source, uidvalidity, uid)
// triples have already been ingested.
type ProcessedEmailRepository struct {
	s *Store
}

// MarkProcessed records a UID as processed. INSERT OR IGNORE enforces
// the at-most-one-row invariant: marking the same triple twice is a
// no-op, not an error.
func (r *ProcessedEmailRepository) MarkProcessed(ctx context.Context, source string, uidValidity, uid uint32) error {
	return r.s.withLock(func() error {
		_, err := r.s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO processed_emails (source, uidvalidity, uid, processed_at) VALUES (?,?,?,?)`,
			source, uidValidity, uid, formatTime(time.Now()))
		if err != nil {
			return fmt.Errorf("marking email processed: %w", err)
		}
		return nil
	})
}

// FindProcessedUIDs returns the subset of uids already recorded as
// processed for (source, uidValidity).
func (r *ProcessedEmailRepository) FindProcessedUIDs(ctx context.Context, source string, uidValidity uint32, uids []uint32) (map[uint32]bool, error) {
	if len(uids) == 0 {
		return map[uint32]bool{}, nil
	}
	placeholders := make([]string, len(uids))
	args := make([]any, 0, len(uids)+2)
	args = append(args, source, uidValidity)
	for i, u := range uids {
		placeholders[i] = "?"
		args = append(args, u)
	}
	query := fmt.Sprintf(`SELECT uid FROM processed_emails WHERE source = ? AND uidvalidity = ? AND uid IN (%s)`,
		strings.Join(placeholders, ","))

	present := map[uint32]bool{}
	err := r.s.withLock(func() error {
		rows, err := r.s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var uid uint32
			if err := rows.Scan(&uid); err != nil {
				return err
			}
			present[uid] = true
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("finding processed uids: %w", err)
	}
	return present, nil
}

// LastProcessedUID returns the highest UID recorded for a source at
// the given uidValidity, or 0 if none.
func (r *ProcessedEmailRepository) LastProcessedUID(ctx context.Context, source string, uidValidity uint32) (uint32, error) {
	var last uint32
	err := r.s.withLock(func() error {
		row := r.s.db.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(uid), 0) FROM processed_emails WHERE source = ? AND uidvalidity = ?`,
			source, uidValidity)
		return row.Scan(&last)
	})
	if err != nil {
		return 0, fmt.Errorf("reading last processed uid: %w", err)
	}
	return last, nil
}

// LastUIDValidity returns the highest uidvalidity value recorded for
// a source, or 0 if nothing has been processed yet. Scanners compare this against the folder's current
// UIDVALIDITY to detect a folder recreation before trusting any
// cached UID watermark.
func (r *ProcessedEmailRepository) LastUIDValidity(ctx context.Context, source string) (uint32, error) {
	var last uint32
	err := r.s.withLock(func() error {
		row := r.s.db.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(uidvalidity), 0) FROM processed_emails WHERE source = ?`, source)
		return row.Scan(&last)
	})
	if err != nil {
		return 0, fmt.Errorf("reading last uidvalidity: %w", err)
	}
	return last, nil
}

// ClearForUIDValidity deletes every row for a source's prior
// uidvalidity; called when a folder's UIDVALIDITY changes, since all
// previously cached UIDs are meaningless once that happens.
func (r *ProcessedEmailRepository) ClearForUIDValidity(ctx context.Context, source string, oldUIDValidity uint32) error {
	return r.s.withLock(func() error {
		_, err := r.s.db.ExecContext(ctx,
			`DELETE FROM processed_emails WHERE source = ? AND uidvalidity = ?`, source, oldUIDValidity)
		if err != nil {
			return fmt.Errorf("clearing stale uidvalidity rows: %w", err)
		}
		return nil
	})
}

// Stats summarizes a source's processed-email history for the doctor
// command.
func (r *ProcessedEmailRepository) Stats(ctx context.Context, source string) (model.TrackerStats, error) {
	stats := model.TrackerStats{SourceName: source}
	err := r.s.withLock(func() error {
		row := r.s.db.QueryRowContext(ctx,
			`SELECT COUNT(*), MAX(processed_at), MAX(uidvalidity) FROM processed_emails WHERE source = ?`, source)
		var count int
		var lastProcessed, maxUIDValidity *string
		if err := row.Scan(&count, &lastProcessed, &maxUIDValidity); err != nil {
			return err
		}
		stats.TotalProcessed = count
		if lastProcessed != nil {
			t, err := parseTime(*lastProcessed)
			if err == nil {
				stats.LastProcessedAt = &t
			}
		}
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("reading tracker stats: %w", err)
	}
	return stats, nil
}
