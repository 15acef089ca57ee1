package recovery

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/timmy/gridport/internal/datastore"
	"github.com/timmy/gridport/internal/domain"
	"github.com/timmy/gridport/internal/session"
)

const fullContent = "name,email\nMax,max@x.com\nAna,ana@x.com\nLu,lu@x.com\nVo,vo@x.com\n"

func fullRecord(id string) *domain.FileSessionRecord {
	return &domain.FileSessionRecord{
		RecordID:     id,
		FileName:     "contacts.csv",
		OriginalSize: int64(len(fullContent)),
		TotalLines:   5,
	}
}

// fakeFetcher serves downloads per credential kind and counts attempts.
type fakeFetcher struct {
	elevatedErr  error
	staticErr    error
	anonymousErr error
	content      string
	freshURL     string
	attempts     []string
}

func (f *fakeFetcher) DownloadFile(_ context.Context, url, bearer string, anonymous bool) (string, error) {
	switch {
	case anonymous:
		f.attempts = append(f.attempts, "anonymous")
		if f.anonymousErr != nil {
			return "", f.anonymousErr
		}
	case bearer != "":
		f.attempts = append(f.attempts, "elevated")
		if f.elevatedErr != nil {
			return "", f.elevatedErr
		}
	default:
		f.attempts = append(f.attempts, "static")
		if f.staticErr != nil {
			return "", f.staticErr
		}
	}
	return f.content, nil
}

func (f *fakeFetcher) GetFile(_ context.Context, fileID string) (*datastore.FileDescriptor, error) {
	if f.freshURL == "" {
		return nil, errors.New("no such file")
	}
	return &datastore.FileDescriptor{ID: fileID, URL: f.freshURL}, nil
}

type staticTokens struct{}

func (staticTokens) GetToken(context.Context) (string, error) { return "bearer-token", nil }

func TestNeedsRecovery(t *testing.T) {
	testCases := []struct {
		name    string
		record  domain.FileSessionRecord
		content string
		want    bool
	}{
		{
			name:    "full record",
			record:  *fullRecord("r"),
			content: fullContent,
			want:    false,
		},
		{
			name:    "optimized flag",
			record:  domain.FileSessionRecord{IsOptimized: true},
			content: fullContent,
			want:    true,
		},
		{
			name:    "header only flag",
			record:  domain.FileSessionRecord{IsHeaderOnly: true},
			content: "name,email",
			want:    true,
		},
		{
			name:    "truncation marker present",
			record:  domain.FileSessionRecord{},
			content: "name,email\nMax,max@x.com" + domain.TruncationMarker,
			want:    true,
		},
		{
			name:    "line count materially below declared",
			record:  domain.FileSessionRecord{TotalLines: 100},
			content: "name,email\nMax,max@x.com",
			want:    true,
		},
		{
			name:    "small content against large declared size",
			record:  domain.FileSessionRecord{OriginalSize: 4 << 20},
			content: "tiny",
			want:    true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NeedsRecovery(&tc.record, tc.content); got != tc.want {
				t.Errorf("NeedsRecovery = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRecoverFromMemoryCacheClearsAfterUse(t *testing.T) {
	m := NewManager(nil, nil, nil, nil)
	record := fullRecord("r1")
	record.IsOptimized = true

	m.Register("r1", fullContent)

	got := m.Recover(context.Background(), record, "name,email")
	if got != fullContent {
		t.Fatalf("Recover = %q, want full content", got)
	}
	// Cache is consumed by first use; second recovery finds nothing better.
	got = m.Recover(context.Background(), record, "name,email")
	if got == fullContent {
		t.Error("memory cache served content twice")
	}
}

func TestRecoverFromSessionStore(t *testing.T) {
	store := session.NewMemoryStore(0)
	seed := fullRecord("r2")
	seed.Content = fullContent
	if err := store.Save(context.Background(), seed); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	m := NewManager(store, nil, nil, nil)
	query := fullRecord("r2")
	query.IsOptimized = true
	got := m.Recover(context.Background(), query, "name,email")
	if got != fullContent {
		t.Errorf("Recover = %q, want session store content", got)
	}
}

func TestRecoverSkipsHeaderOnlyStoreContent(t *testing.T) {
	store := session.NewMemoryStore(0)
	stored := fullRecord("r3")
	stored.Content = "name,email"
	stored.IsHeaderOnly = true
	if err := store.Save(context.Background(), stored); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	m := NewManager(store, nil, nil, nil)
	query := fullRecord("r3")
	query.IsOptimized = true
	got := m.Recover(context.Background(), query, "")
	if strings.Contains(got, "name,email") && got == "name,email" {
		t.Error("header-only content was treated as row data")
	}
}

func TestRecoverCredentialDowngrade(t *testing.T) {
	fetcher := &fakeFetcher{
		content:      fullContent,
		elevatedErr:  &datastore.APIError{Status: 401, Body: "expired"},
		staticErr:    &datastore.APIError{Status: 403, Body: "forbidden"},
		anonymousErr: nil,
	}
	record := fullRecord("r4")
	record.IsOptimized = true
	record.RemoteFileURL = "/files/abc"

	m := NewManager(nil, fetcher, staticTokens{}, nil)
	got := m.Recover(context.Background(), record, "")
	if got != fullContent {
		t.Fatalf("Recover = %q, want full content via anonymous download", got)
	}
	want := []string{"elevated", "static", "anonymous"}
	if len(fetcher.attempts) != len(want) {
		t.Fatalf("attempts = %v, want %v", fetcher.attempts, want)
	}
	for i := range want {
		if fetcher.attempts[i] != want[i] {
			t.Errorf("attempt[%d] = %s, want %s", i, fetcher.attempts[i], want[i])
		}
	}
}

func TestRecoverViaFreshMetadataURL(t *testing.T) {
	fetcher := &fakeFetcher{content: fullContent, freshURL: "/files/fresh"}
	// All downloads for the stale URL fail, the fresh URL works.
	record := fullRecord("r5")
	record.IsOptimized = true
	record.RemoteFileID = "file-5"

	m := NewManager(nil, fetcher, nil, nil)
	got := m.Recover(context.Background(), record, "")
	if got != fullContent {
		t.Errorf("Recover = %q, want content via fresh URL", got)
	}
}

func TestRecoverReturnsBestAvailableWhenExhausted(t *testing.T) {
	m := NewManager(nil, nil, nil, nil)
	record := fullRecord("r6")
	record.IsOptimized = true
	partial := "name,email\nMax,max@x.com" + domain.TruncationMarker

	got := m.Recover(context.Background(), record, partial)
	if strings.Contains(got, domain.TruncationMarker) {
		t.Error("truncation marker not stripped from returned content")
	}
	if got == "" {
		t.Error("best available content discarded")
	}
	if Sufficient(record, got) {
		t.Error("partial content wrongly reported sufficient")
	}
}

func TestStripTruncationMarker(t *testing.T) {
	in := "a,b" + domain.TruncationMarker + "\nc,d"
	if got := StripTruncationMarker(in); strings.Contains(got, domain.TruncationMarker) {
		t.Errorf("marker survived: %q", got)
	}
}
