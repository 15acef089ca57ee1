package session

import (
	"context"
	"strings"
	"testing"

	"github.com/timmy/gridport/internal/domain"
)

func sampleContent(rows int) string {
	var b strings.Builder
	b.WriteString("name,email,phone\n")
	for i := 0; i < rows; i++ {
		b.WriteString("Person,person@example.com,555-0100\n")
	}
	return b.String()
}

func TestPersistFullContentFits(t *testing.T) {
	store := NewMemoryStore(0)
	content := sampleContent(10)
	record := &domain.FileSessionRecord{RecordID: "r1", FileName: "contacts.csv"}

	if err := Persist(context.Background(), store, record, content); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if record.IsOptimized || record.IsHeaderOnly || record.RequiresReupload {
		t.Errorf("full-content record carries fallback flags: %+v", record)
	}
	if record.Content != content {
		t.Error("stored content differs from full content")
	}
	if record.TotalLines != 11 {
		t.Errorf("TotalLines = %d, want 11", record.TotalLines)
	}

	loaded, err := store.Get(context.Background(), "r1")
	if err != nil || loaded == nil {
		t.Fatalf("Get: %v, %v", loaded, err)
	}
	if !loaded.HasFullContent() {
		t.Error("loaded record not recognized as full")
	}
}

func TestPersistEscalatesToTruncated(t *testing.T) {
	content := sampleContent(100)
	store := NewMemoryStore(len(content) - 100)
	record := &domain.FileSessionRecord{RecordID: "r2", FileName: "contacts.csv"}

	if err := Persist(context.Background(), store, record, content); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if !record.IsOptimized {
		t.Error("truncated record not flagged optimized")
	}
	if record.IsHeaderOnly {
		t.Error("truncated record wrongly flagged header-only")
	}
	if !strings.HasSuffix(record.Content, domain.TruncationMarker) {
		t.Error("truncated content missing truncation marker")
	}
	if record.HasFullContent() {
		t.Error("truncated record claims full content")
	}
}

func TestPersistEscalatesToHeaderOnly(t *testing.T) {
	content := sampleContent(100)
	store := NewMemoryStore(80)
	record := &domain.FileSessionRecord{RecordID: "r3", FileName: "contacts.csv"}

	if err := Persist(context.Background(), store, record, content); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if !record.IsHeaderOnly {
		t.Fatalf("record not header-only: %+v", record)
	}
	lines := strings.Split(record.Content, "\n")
	if len(lines) > headerOnlyLines {
		t.Errorf("header-only content has %d lines", len(lines))
	}
	if lines[0] != "name,email,phone" {
		t.Errorf("header line lost: %q", lines[0])
	}
}

func TestPersistLastResortRequiresReupload(t *testing.T) {
	content := sampleContent(100)
	store := NewMemoryStore(1)
	record := &domain.FileSessionRecord{RecordID: "r4", FileName: "contacts.csv"}

	if err := Persist(context.Background(), store, record, content); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if !record.RequiresReupload {
		t.Fatal("record not flagged requiresReupload")
	}
	if record.Content != "" {
		t.Error("last-resort record still carries content")
	}
	if record.TotalLines != 101 {
		t.Errorf("TotalLines = %d, want 101", record.TotalLines)
	}
}

func TestMemoryStoreDeleteIdempotent(t *testing.T) {
	store := NewMemoryStore(0)
	if err := store.Delete(context.Background(), "missing"); err != nil {
		t.Errorf("Delete of absent record errored: %v", err)
	}
}
