package imap

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/emersion/go-imap/client"
	"github.com/google/uuid"
	"github.com/iperka/paporg-sub001/internal/config"
	"github.com/iperka/paporg-sub001/internal/model"
	"github.com/iperka/paporg-sub001/internal/secrets"
)

// Tracker is the subset of store.ProcessedEmailRepository the scanner
// depends on, kept narrow so tests can fake it without a real store.
type Tracker interface {
	LastProcessedUID(ctx context.Context, source string, uidValidity uint32) (uint32, error)
	FindProcessedUIDs(ctx context.Context, source string, uidValidity uint32, uids []uint32) (map[uint32]bool, error)
	MarkProcessed(ctx context.Context, source string, uidValidity, uid uint32) error
	LastUIDValidity(ctx context.Context, source string) (uint32, error)
	ClearForUIDValidity(ctx context.Context, source string, oldUIDValidity uint32) error
}

// TokenStore is the subset of store.OAuthTokenRepository the scanner
// depends on to resolve and refresh an oauth2 credential.
type TokenStore interface {
	Get(ctx context.Context, source string) (*model.OAuthToken, error)
	Upsert(ctx context.Context, t model.OAuthToken) error
}

// Scanner polls one configured IMAP source for unprocessed messages,
// extracts matching attachments into tempDir, and returns a Job per
// attachment.
type Scanner struct {
	sourceName string
	cfg        config.IMAPSourceConfig
	filters    config.FileFilters
	tempDir    string
	tracker    Tracker
	tokens     TokenStore
	now        func() time.Time
}

// NewScanner builds a Scanner for one configured IMAP ImportSource.
// tokens may be nil for password-authenticated sources.
func NewScanner(sourceName string, cfg config.IMAPSourceConfig, filters config.FileFilters, tempDir string, tracker Tracker, tokens TokenStore) *Scanner {
	return &Scanner{sourceName: sourceName, cfg: cfg, filters: filters, tempDir: tempDir, tracker: tracker, tokens: tokens, now: time.Now}
}

// Scan connects, authenticates, finds unprocessed messages, extracts
// their matching attachments into tempDir, and marks every fetched UID
// processed. It always disconnects before returning, even on error.
func (s *Scanner) Scan(ctx context.Context) ([]model.Job, error) {
	c, err := Dial(s.cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s:%d: %w", s.cfg.Host, s.cfg.Port, err)
	}
	defer func() { _ = c.Logout() }()

	credential, err := s.resolveCredential(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving credential: %w", err)
	}
	if err := Login(c, s.cfg, credential); err != nil {
		return nil, fmt.Errorf("authenticating: %w", err)
	}

	uidValidity, err := ExamineFolder(c, s.cfg.Folder)
	if err != nil {
		return nil, err
	}
	if err := s.clearStaleUIDValidity(ctx, uidValidity); err != nil {
		return nil, err
	}

	uids, err := s.uidsToProcess(ctx, c, uidValidity)
	if err != nil {
		return nil, err
	}
	if len(uids) == 0 {
		return nil, nil
	}

	batchSize := s.cfg.BatchSize
	if batchSize <= 0 || batchSize > len(uids) {
		batchSize = len(uids)
	}
	uids = uids[:batchSize]

	raw, err := FetchRaw(c, uids)
	if err != nil {
		return nil, err
	}

	var jobs []model.Job
	for _, uid := range uids {
		body, ok := raw[uid]
		if !ok {
			continue
		}
		attachments, err := ExtractAttachments(body, s.filters)
		if err != nil {
			// One malformed message must not abort the whole scan; it
			// yields no jobs but is still marked processed below.
			attachments = nil
		}
		for _, att := range attachments {
			path, err := s.saveAttachment(att)
			if err != nil {
				continue
			}
			jobs = append(jobs, s.jobFor(path, att.Filename))
		}
		if err := s.tracker.MarkProcessed(ctx, s.sourceName, uidValidity, uid); err != nil {
			return jobs, fmt.Errorf("marking uid %d processed: %w", uid, err)
		}
	}
	return jobs, nil
}

// clearStaleUIDValidity drops any cached UID-tracking rows left over
// from a prior incarnation of the folder. A folder's UIDVALIDITY
// changes whenever it is recreated (e.g. deleted and re-added), which
// invalidates every UID ever recorded against the old value; nothing
// prevents those UIDs from colliding with unrelated messages under the
// new value, so they must be cleared before the scan searches or marks
// anything.
func (s *Scanner) clearStaleUIDValidity(ctx context.Context, uidValidity uint32) error {
	last, err := s.tracker.LastUIDValidity(ctx, s.sourceName)
	if err != nil {
		return fmt.Errorf("reading last uidvalidity: %w", err)
	}
	if last == 0 || last == uidValidity {
		return nil
	}
	if err := s.tracker.ClearForUIDValidity(ctx, s.sourceName, last); err != nil {
		return fmt.Errorf("clearing stale uidvalidity %d: %w", last, err)
	}
	return nil
}

// uidsToProcess resolves the candidate UID list per the configured
// since_date (if any) or the tracker's last-processed watermark, then
// filters out anything already recorded as processed.
func (s *Scanner) uidsToProcess(ctx context.Context, c *client.Client, uidValidity uint32) ([]uint32, error) {
	var uids []uint32
	var err error

	switch {
	case s.cfg.SinceDate != "":
		since, parseErr := parseSinceDate(s.cfg.SinceDate)
		if parseErr != nil {
			return nil, parseErr
		}
		uids, err = SearchSinceDate(c, since)
	default:
		last, lastErr := s.tracker.LastProcessedUID(ctx, s.sourceName, uidValidity)
		if lastErr != nil {
			return nil, lastErr
		}
		uids, err = SearchSinceUID(c, last)
	}
	if err != nil {
		return nil, fmt.Errorf("searching for messages: %w", err)
	}

	processed, err := s.tracker.FindProcessedUIDs(ctx, s.sourceName, uidValidity, uids)
	if err != nil {
		return nil, err
	}
	remaining := make([]uint32, 0, len(uids))
	for _, uid := range uids {
		if !processed[uid] {
			remaining = append(remaining, uid)
		}
	}
	sort.Slice(remaining, func(i, j int) bool { return remaining[i] < remaining[j] })
	return remaining, nil
}

// resolveCredential returns the password or OAuth2 access token this
// source authenticates with, per its configured AuthType.
func (s *Scanner) resolveCredential(ctx context.Context) (string, error) {
	if s.cfg.AuthType == config.IMAPAuthOAuth2 {
		if s.cfg.OAuth2 == nil {
			return "", fmt.Errorf("oauth2 auth type requires an oauth2 client configuration")
		}
		if s.tokens == nil {
			return "", fmt.Errorf("oauth2 auth type requires a token store")
		}
		stored, err := s.tokens.Get(ctx, s.sourceName)
		if err != nil {
			return "", fmt.Errorf("reading stored oauth2 token: %w", err)
		}
		if stored == nil {
			return "", fmt.Errorf("no oauth2 token stored for source %q; run 'paporgd oauth authorize %s' first", s.sourceName, s.sourceName)
		}
		if !stored.IsExpired(s.now(), 0) {
			return stored.AccessToken, nil
		}
		if stored.RefreshToken == nil {
			return "", fmt.Errorf("oauth2 token for source %q expired and carries no refresh token; re-run 'paporgd oauth authorize %s'", s.sourceName, s.sourceName)
		}
		refreshed, err := RefreshToken(ctx, s.cfg.OAuth2, stored)
		if err != nil {
			return "", fmt.Errorf("refreshing oauth2 token: %w", err)
		}
		if err := s.tokens.Upsert(ctx, *refreshed); err != nil {
			return "", fmt.Errorf("persisting refreshed oauth2 token: %w", err)
		}
		return refreshed.AccessToken, nil
	}
	return secrets.Resolve("", s.cfg.PasswordFile, s.cfg.PasswordEnvVar)
}

// saveAttachment writes att into tempDir under a name unique across
// sources, timestamps, and original filenames.
func (s *Scanner) saveAttachment(att Attachment) (string, error) {
	if err := os.MkdirAll(s.tempDir, 0750); err != nil {
		return "", fmt.Errorf("creating temp directory %s: %w", s.tempDir, err)
	}
	timestamp := s.now().Format("20060102_150405")
	uniqueID := uuid.NewString()[:8]
	filename := fmt.Sprintf("%s_%s_%s_%s", s.sourceName, timestamp, uniqueID, att.Filename)
	path := filepath.Join(s.tempDir, filename)
	if err := os.WriteFile(path, att.Content, 0640); err != nil {
		return "", fmt.Errorf("writing attachment %s: %w", path, err)
	}
	return path, nil
}

// jobFor builds a pending Job for a saved attachment, tagging it with
// the MIME type its extension maps to, if any.
func (s *Scanner) jobFor(path, originalFilename string) model.Job {
	job := model.NewJob(uuid.NewString(), originalFilename, path, s.now())
	source := s.sourceName
	job.Source = &source
	if t := mime.TypeByExtension(filepath.Ext(originalFilename)); t != "" {
		job.MIMEType = &t
	}
	return *job
}

// parseSinceDate accepts RFC 3339 or a bare YYYY-MM-DD date.
func parseSinceDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid since_date %q: expected RFC 3339 or YYYY-MM-DD", s)
}
