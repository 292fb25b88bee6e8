package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/iperka/paporg-sub001/internal/model"
)

// JobRepository provides CRUD and filtered pagination over jobs.
type JobRepository struct {
	s *Store
}

// Create inserts a new job row.
func (r *JobRepository) Create(ctx context.Context, j *model.Job) error {
	return r.s.withLock(func() error {
		_, err := r.s.db.ExecContext(ctx, `INSERT INTO jobs
			(id, original_filename, current_path, archive_path, output_path, category, source,
			 status, error, created_at, updated_at, completed_at, symlinks, phase, message, mime_type, extracted_text)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			j.ID, j.OriginalFilename, j.CurrentPath, j.ArchivePath, j.OutputPath, j.Category, j.Source,
			string(j.Status), j.Error, formatTime(j.CreatedAt), formatTime(j.UpdatedAt), formatTimePtr(j.CompletedAt),
			joinSymlinks(j.Symlinks), j.Phase, j.Message, j.MIMEType, j.ExtractedText)
		if err != nil {
			return fmt.Errorf("creating job %s: %w", j.ID, err)
		}
		return nil
	})
}

// Get fetches a single job by ID.
func (r *JobRepository) Get(ctx context.Context, id string) (*model.Job, error) {
	var j model.Job
	err := r.s.withLock(func() error {
		row := r.s.db.QueryRowContext(ctx, jobSelectSQL+` WHERE id = ?`, id)
		return scanJob(row, &j)
	})
	if err != nil {
		return nil, fmt.Errorf("getting job %s: %w", id, err)
	}
	return &j, nil
}

// Update applies a set of column updates to a job and bumps
// updated_at.
func (r *JobRepository) Update(ctx context.Context, id string, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.s.withLock(func() error {
		cols := make([]string, 0, len(updates)+1)
		args := make([]any, 0, len(updates)+2)
		for col, val := range updates {
			cols = append(cols, col+" = ?")
			args = append(args, val)
		}
		cols = append(cols, "updated_at = ?")
		args = append(args, formatTime(time.Now()))
		args = append(args, id)

		query := fmt.Sprintf("UPDATE jobs SET %s WHERE id = ?", strings.Join(cols, ", "))
		_, err := r.s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("updating job %s: %w", id, err)
		}
		return nil
	})
}

// Complete marks a job as having finished the pipeline successfully,
// recording every artifact path the run produced.
func (r *JobRepository) Complete(ctx context.Context, id, outputPath, archivePath string, symlinks []string, category, extractedText string) error {
	updates := map[string]any{
		"status":       string(model.StatusCompleted),
		"output_path":  outputPath,
		"archive_path": archivePath,
		"symlinks":     joinSymlinks(symlinks),
		"category":     category,
		"completed_at": formatTime(time.Now()),
	}
	if extractedText != "" {
		updates["extracted_text"] = extractedText
	}
	return r.Update(ctx, id, updates)
}

// Fail marks a job as having failed the pipeline with errMsg.
func (r *JobRepository) Fail(ctx context.Context, id, errMsg string) error {
	return r.Update(ctx, id, map[string]any{
		"status": string(model.StatusFailed),
		"error":  errMsg,
	})
}

// UpdateExtractedText overwrites a job's stored extracted text. See
// the OCR re-extraction design decision: a fresh extraction always
// wins over a stale one.
func (r *JobRepository) UpdateExtractedText(ctx context.Context, id, text string) error {
	return r.Update(ctx, id, map[string]any{"extracted_text": text})
}

// List returns a filtered, paginated slice of jobs plus the total
// matching count (ignoring limit/offset).
func (r *JobRepository) List(ctx context.Context, filter model.JobFilter) ([]*model.Job, int, error) {
	where := []string{"1=1"}
	args := []any{}

	if filter.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.Category != nil {
		where = append(where, "category = ?")
		args = append(args, *filter.Category)
	}
	if filter.Source != nil {
		where = append(where, "source = ?")
		args = append(args, *filter.Source)
	}
	if filter.FromDate != nil {
		where = append(where, "created_at >= ?")
		args = append(args, formatTime(*filter.FromDate))
	}
	if filter.ToDate != nil {
		where = append(where, "created_at <= ?")
		args = append(args, formatTime(*filter.ToDate))
	}
	whereClause := strings.Join(where, " AND ")

	var jobs []*model.Job
	var total int
	err := r.s.withLock(func() error {
		countRow := r.s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM jobs WHERE "+whereClause, args...)
		if err := countRow.Scan(&total); err != nil {
			return err
		}

		query := jobSelectSQL + " WHERE " + whereClause + " ORDER BY created_at DESC"
		listArgs := append([]any{}, args...)
		if filter.Limit > 0 {
			query += " LIMIT ?"
			listArgs = append(listArgs, filter.Limit)
			if filter.Offset > 0 {
				query += " OFFSET ?"
				listArgs = append(listArgs, filter.Offset)
			}
		}
		rows, err := r.s.db.QueryContext(ctx, query, listArgs...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var j model.Job
			if err := scanJob(rows, &j); err != nil {
				return err
			}
			jobs = append(jobs, &j)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, fmt.Errorf("listing jobs: %w", err)
	}
	return jobs, total, nil
}

const jobSelectSQL = `SELECT id, original_filename, current_path, archive_path, output_path, category, source,
	status, error, created_at, updated_at, completed_at, symlinks, phase, message, mime_type, extracted_text FROM jobs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner, j *model.Job) error {
	var (
		archivePath, outputPath, source, jobErr, symlinks, phase, message, mimeType, extractedText sql.NullString
		completedAt                                                                                 sql.NullString
		createdAt, updatedAt, status                                                                string
	)
	if err := row.Scan(&j.ID, &j.OriginalFilename, &j.CurrentPath, &archivePath, &outputPath, &j.Category, &source,
		&status, &jobErr, &createdAt, &updatedAt, &completedAt, &symlinks, &phase, &message, &mimeType, &extractedText); err != nil {
		return err
	}
	j.ArchivePath = nullableString(archivePath)
	j.OutputPath = nullableString(outputPath)
	j.Source = nullableString(source)
	j.Error = nullableString(jobErr)
	j.Phase = nullableString(phase)
	j.Message = nullableString(message)
	j.MIMEType = nullableString(mimeType)
	j.ExtractedText = nullableString(extractedText)
	j.Status = model.Status(status)
	j.Symlinks = splitSymlinks(symlinks.String)

	t, err := parseTime(createdAt)
	if err != nil {
		return fmt.Errorf("parsing created_at: %w", err)
	}
	j.CreatedAt = t
	t, err = parseTime(updatedAt)
	if err != nil {
		return fmt.Errorf("parsing updated_at: %w", err)
	}
	j.UpdatedAt = t
	if completedAt.Valid {
		t, err := parseTime(completedAt.String)
		if err != nil {
			return fmt.Errorf("parsing completed_at: %w", err)
		}
		j.CompletedAt = &t
	}
	return nil
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func joinSymlinks(symlinks []string) *string {
	if len(symlinks) == 0 {
		return nil
	}
	s := strings.Join(symlinks, "\x1f")
	return &s
}

func splitSymlinks(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\x1f")
}
