// Package recovery guarantees the import pipeline sees the complete file
// content even when only a truncated copy survived session-storage limits or
// a page reload. Strategies are an explicit ordered list, each a pure lookup
// tried by a small driver loop, escalating from free (in-memory cache) to
// expensive (network re-fetch, archive download).
package recovery

import (
	"context"
	"io"
	"strings"

	"github.com/timmy/gridport/internal/datastore"
	"github.com/timmy/gridport/internal/domain"
	"github.com/timmy/gridport/internal/logger"
	"github.com/timmy/gridport/internal/parser"
	"github.com/timmy/gridport/internal/session"
	"github.com/timmy/gridport/internal/storage"
)

// FileFetcher is the slice of the datastore client recovery needs.
type FileFetcher interface {
	DownloadFile(ctx context.Context, url, bearer string, anonymous bool) (string, error)
	GetFile(ctx context.Context, fileID string) (*datastore.FileDescriptor, error)
}

// TokenSource supplies the elevated credential for the privileged download
// attempt.
type TokenSource interface {
	GetToken(ctx context.Context) (string, error)
}

// strategy is one recovery tier. It returns "" when its source has nothing
// for this record; errors are logged and treated the same way.
type strategy struct {
	name string
	fn   func(ctx context.Context, record *domain.FileSessionRecord) (string, error)
}

// Manager runs the escalation chain.
type Manager struct {
	cache   *memoryCache
	store   session.Store
	files   FileFetcher
	tokens  TokenSource
	archive storage.ObjectStorage // may be nil
}

// NewManager wires the recovery tiers. store, files, tokens and archive may
// each be nil; the corresponding tiers are then skipped.
func NewManager(store session.Store, files FileFetcher, tokens TokenSource, archive storage.ObjectStorage) *Manager {
	return &Manager{
		cache:   newMemoryCache(),
		store:   store,
		files:   files,
		tokens:  tokens,
		archive: archive,
	}
}

// Register caches full content for a record so the first recovery after a
// quota-pressured save is free.
func (m *Manager) Register(recordID, content string) {
	m.cache.put(recordID, content)
}

// Forget drops any cached content for a record.
func (m *Manager) Forget(recordID string) {
	m.cache.drop(recordID)
}

// NeedsRecovery decides whether currentContent can be trusted as the whole
// file for this record.
func NeedsRecovery(record *domain.FileSessionRecord, currentContent string) bool {
	if record.IsOptimized || record.IsHeaderOnly || record.RequiresReupload {
		return true
	}
	if strings.Contains(currentContent, domain.TruncationMarker) {
		return true
	}
	if record.TotalLines > 0 {
		// Materially below the declared line count, not merely off by a
		// trailing newline.
		if parser.CountLines(currentContent) < record.TotalLines*9/10 {
			return true
		}
	}
	const largeFileBytes = 1 << 20
	if record.OriginalSize > largeFileBytes && int64(len(currentContent)) < record.OriginalSize/2 {
		return true
	}
	return false
}

// Sufficient reports whether content plausibly covers the whole declared
// file. Callers use it to decide between proceeding and failing the import
// with ErrContentUnavailable.
func Sufficient(record *domain.FileSessionRecord, content string) bool {
	if content == "" {
		return false
	}
	if strings.Contains(content, domain.TruncationMarker) {
		return false
	}
	if record.TotalLines > 0 && parser.CountLines(content) < record.TotalLines {
		return false
	}
	return true
}

// StripTruncationMarker removes the marker string wherever the stored copy
// carried it.
func StripTruncationMarker(content string) string {
	return strings.ReplaceAll(content, domain.TruncationMarker, "")
}

// Recover returns the most complete content obtainable for the record. It
// never fails outright: when every tier comes up empty the best available
// content (possibly truncated) is returned, and the caller decides whether
// that is enough to proceed.
func (m *Manager) Recover(ctx context.Context, record *domain.FileSessionRecord, currentContent string) string {
	if !NeedsRecovery(record, currentContent) {
		return StripTruncationMarker(currentContent)
	}

	best := StripTruncationMarker(currentContent)

	for _, s := range m.strategies() {
		content, err := s.fn(ctx, record)
		if err != nil {
			logger.CtxWarn(ctx, "Recovery strategy %s failed for record %s: %v", s.name, record.RecordID, err)
			continue
		}
		if content == "" {
			continue
		}
		content = StripTruncationMarker(content)
		if len(content) > len(best) {
			best = content
		}
		if Sufficient(record, content) {
			logger.CtxInfo(ctx, "Recovered full content for record %s via %s (%d bytes)", record.RecordID, s.name, len(content))
			return content
		}
	}

	logger.CtxWarn(ctx, "Recovery exhausted for record %s, returning best available (%d of %d bytes)",
		record.RecordID, len(best), record.OriginalSize)
	return best
}

// strategies returns the escalation chain in cost order.
func (m *Manager) strategies() []strategy {
	return []strategy{
		{name: "memory_cache", fn: m.fromMemoryCache},
		{name: "session_store", fn: m.fromSessionStore},
		{name: "remote_refetch", fn: m.fromRemoteURL},
		{name: "remote_metadata", fn: m.fromRemoteMetadata},
		{name: "upload_archive", fn: m.fromArchive},
	}
}

func (m *Manager) fromMemoryCache(_ context.Context, record *domain.FileSessionRecord) (string, error) {
	content, _ := m.cache.take(record.RecordID)
	return content, nil
}

func (m *Manager) fromSessionStore(ctx context.Context, record *domain.FileSessionRecord) (string, error) {
	if m.store == nil {
		return "", nil
	}
	stored, err := m.store.Get(ctx, record.RecordID)
	if err != nil || stored == nil {
		return "", err
	}
	if stored.IsHeaderOnly || stored.RequiresReupload {
		// Header-only content must never be treated as row data.
		return "", nil
	}
	return stored.Content, nil
}

// fromRemoteURL re-downloads the original upload, walking credentials from
// most to least privileged until one succeeds.
func (m *Manager) fromRemoteURL(ctx context.Context, record *domain.FileSessionRecord) (string, error) {
	if m.files == nil || record.RemoteFileURL == "" {
		return "", nil
	}
	return m.downloadWithFallback(ctx, record.RemoteFileURL)
}

// fromRemoteMetadata re-reads the file's metadata row for a fresh download
// URL, then retries the download chain.
func (m *Manager) fromRemoteMetadata(ctx context.Context, record *domain.FileSessionRecord) (string, error) {
	if m.files == nil || record.RemoteFileID == "" {
		return "", nil
	}
	desc, err := m.files.GetFile(ctx, record.RemoteFileID)
	if err != nil {
		return "", err
	}
	if desc.URL == "" || desc.URL == record.RemoteFileURL {
		return "", nil
	}
	return m.downloadWithFallback(ctx, desc.URL)
}

func (m *Manager) downloadWithFallback(ctx context.Context, url string) (string, error) {
	var lastErr error

	if m.tokens != nil {
		if bearer, err := m.tokens.GetToken(ctx); err == nil {
			content, err := m.files.DownloadFile(ctx, url, bearer, false)
			if err == nil {
				return content, nil
			}
			lastErr = err
		}
	}

	// Basic (static) token.
	content, err := m.files.DownloadFile(ctx, url, "", false)
	if err == nil {
		return content, nil
	}
	lastErr = err

	// Anonymous last.
	content, err = m.files.DownloadFile(ctx, url, "", true)
	if err == nil {
		return content, nil
	}
	if lastErr == nil {
		lastErr = err
	}
	return "", lastErr
}

func (m *Manager) fromArchive(ctx context.Context, record *domain.FileSessionRecord) (string, error) {
	if m.archive == nil || record.ArchiveKey == "" {
		return "", nil
	}
	body, err := m.archive.Download(ctx, record.ArchiveKey)
	if err != nil {
		return "", err
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
