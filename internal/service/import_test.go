package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/timmy/gridport/internal/config"
	"github.com/timmy/gridport/internal/datastore"
	"github.com/timmy/gridport/internal/domain"
	"github.com/timmy/gridport/internal/engine"
	"github.com/timmy/gridport/internal/provision"
	"github.com/timmy/gridport/internal/recovery"
	"github.com/timmy/gridport/internal/session"
)

const sampleCSV = "name,email,company\n" +
	"Max,max@example.com,Acme\n" +
	"Ana,ana@example.com,Globex\n" +
	"Kim,kim@example.com,Initech\n" +
	"Lee,lee@example.com,Umbrella\n" +
	"Sam,sam@example.com,Hooli\n"

// fakeBackend is an in-memory stand-in for the remote datastore covering
// schema, record and file endpoints.
type fakeBackend struct {
	mu      sync.Mutex
	nextID  int
	fields  map[string]datastore.Field
	records []datastore.Record
	uploads map[string]string // file ID -> content
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		fields:  map[string]datastore.Field{},
		uploads: map[string]string{},
	}
}

func (f *fakeBackend) CreateTable(_ context.Context, _, name string) (*datastore.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	primary := datastore.Field{ID: "fld_primary", Name: "Name", Type: datastore.FieldTypeText, IsPrimary: true}
	f.fields[primary.ID] = primary
	return &datastore.Table{ID: "tbl_1", Name: name, Fields: []datastore.Field{primary}}, nil
}

func (f *fakeBackend) DeleteTable(_ context.Context, _, _ string) error { return nil }

func (f *fakeBackend) CreateField(_ context.Context, _, _, name, fieldType string) (*datastore.Field, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	field := datastore.Field{ID: "fld_" + strconv.Itoa(f.nextID), Name: name, Type: fieldType}
	f.fields[field.ID] = field
	return &field, nil
}

func (f *fakeBackend) RenameField(_ context.Context, _, _, fieldID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	field := f.fields[fieldID]
	field.Name = name
	f.fields[fieldID] = field
	return nil
}

func (f *fakeBackend) DeleteField(_ context.Context, _, _, fieldID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.fields, fieldID)
	return nil
}

func (f *fakeBackend) ListFields(_ context.Context, _, _ string) ([]datastore.Field, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]datastore.Field, 0, len(f.fields))
	for _, field := range f.fields {
		out = append(out, field)
	}
	return out, nil
}

func (f *fakeBackend) BulkCreateRecords(_ context.Context, _ string, payloads []datastore.RecordPayload, _ bool) ([]datastore.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]datastore.Record, len(payloads))
	for i, p := range payloads {
		rec := datastore.Record{ID: "rec_" + strconv.Itoa(len(f.records)+1), Fields: p.Fields}
		f.records = append(f.records, rec)
		out[i] = rec
	}
	return out, nil
}

func (f *fakeBackend) CreateRecord(_ context.Context, _ string, payload datastore.RecordPayload) (*datastore.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := datastore.Record{ID: "rec_" + strconv.Itoa(len(f.records)+1), Fields: payload.Fields}
	f.records = append(f.records, rec)
	return &rec, nil
}

func (f *fakeBackend) ListRecords(_ context.Context, _ string, pageSize int, offset string) (*datastore.RecordPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	start := 0
	if offset != "" {
		start, _ = strconv.Atoi(offset)
	}
	end := start + pageSize
	if end > len(f.records) {
		end = len(f.records)
	}
	page := &datastore.RecordPage{Records: f.records[start:end], Total: len(f.records)}
	if end < len(f.records) {
		page.Offset = strconv.Itoa(end)
	}
	return page, nil
}

func (f *fakeBackend) UploadFile(_ context.Context, name, _, content string) (*datastore.FileDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := "file_" + strconv.Itoa(len(f.uploads)+1)
	f.uploads[id] = content
	return &datastore.FileDescriptor{ID: id, Name: name, URL: "https://files.example.com/" + id}, nil
}

type passthroughTokens struct{}

func (passthroughTokens) WithRetry(_ context.Context, call func(token string) error) error {
	return call("token")
}

func newTestService(backend *fakeBackend, store session.Store) *ImportService {
	rec := recovery.NewManager(store, nil, nil, nil)
	prov := provision.New(backend, passthroughTokens{})
	eng := engine.New(backend, nil, config.ImportConfig{
		BatchSize:             200,
		LargeFileThreshold:    5000,
		CohortSize:            2,
		IndividualConcurrency: 5,
		BulkFailureLimit:      3,
		VerifyPageSize:        100,
		VerifyMaxPages:        10,
	})
	return NewImportService(store, rec, prov, eng, backend, nil)
}

func TestImportRoundTrip(t *testing.T) {
	backend := newFakeBackend()
	store := session.NewMemoryStore(1 << 20)
	svc := newTestService(backend, store)
	ctx := context.Background()

	record, err := svc.Upload(ctx, &domain.SourceFile{
		Name:     "contacts.csv",
		MIMEType: "text/csv",
		Content:  sampleCSV,
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if record.TotalLines != 6 {
		t.Errorf("total lines = %d, want 6", record.TotalLines)
	}
	if record.RemoteFileID == "" {
		t.Error("remote file copy not recorded")
	}

	result, err := svc.Run(ctx, &RunRequest{RecordID: record.RecordID, TableName: "Contacts"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Created != 5 || result.Failed != 0 {
		t.Errorf("created/failed = %d/%d, want 5/0", result.Created, result.Failed)
	}
	if result.Attempted != result.Created+result.Failed {
		t.Errorf("attempted %d != created+failed %d", result.Attempted, result.Created+result.Failed)
	}
	if result.VerifiedRows != 5 {
		t.Errorf("verified rows = %d, want 5", result.VerifiedRows)
	}

	// Session cleanup after success.
	got, err := store.Get(ctx, record.RecordID)
	if err != nil {
		t.Fatalf("Get after run: %v", err)
	}
	if got != nil {
		t.Error("session record not cleaned up after successful run")
	}

	// Every created record carries only non-empty values keyed by field ID.
	for _, rec := range backend.records {
		if len(rec.Fields) != 3 {
			t.Errorf("record fields = %v, want 3 mapped values", rec.Fields)
		}
	}
}

func TestImportRecoversTruncatedSession(t *testing.T) {
	backend := newFakeBackend()
	// Quota forces the session copy into a smaller shape; the memory cache
	// tier must restore the full content at import time.
	store := session.NewMemoryStore(60)
	svc := newTestService(backend, store)
	ctx := context.Background()

	record, err := svc.Upload(ctx, &domain.SourceFile{Name: "contacts.csv", MIMEType: "text/csv", Content: sampleCSV})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	stored, err := store.Get(ctx, record.RecordID)
	if err != nil || stored == nil {
		t.Fatalf("stored record missing: %v", err)
	}
	if stored.HasFullContent() {
		t.Fatal("expected a degraded session copy under quota pressure")
	}

	result, err := svc.Run(ctx, &RunRequest{RecordID: record.RecordID, TableName: "Contacts"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Created != 5 {
		t.Errorf("created = %d, want 5 after recovery", result.Created)
	}
}

func TestRunUnknownRecord(t *testing.T) {
	svc := newTestService(newFakeBackend(), session.NewMemoryStore(1<<20))

	_, err := svc.Run(context.Background(), &RunRequest{RecordID: "nope", TableName: "Contacts"})
	if !errors.Is(err, domain.ErrContentUnavailable) {
		t.Fatalf("err = %v, want ErrContentUnavailable", err)
	}
}

func TestAdjustMappingEvictsAndLocks(t *testing.T) {
	svc := newTestService(newFakeBackend(), session.NewMemoryStore(1<<20))
	proposed := svc.ProposeMapping([]string{"name", "email"}, []string{"Name", "Email"})

	adjusted := svc.AdjustMapping(proposed, []MappingChange{
		{SourceColumn: "name", TargetField: "Email"},
	})

	var nameTarget, emailTarget string
	for _, m := range adjusted {
		switch m.SourceColumn {
		case "name":
			nameTarget = m.TargetField
		case "email":
			emailTarget = m.TargetField
		}
	}
	if nameTarget != "Email" {
		t.Errorf("name target = %q, want Email", nameTarget)
	}
	if emailTarget == "Email" {
		t.Error("email column kept the stolen target, eviction missing")
	}
}

func TestRegistryStartLeavesRequestUntouched(t *testing.T) {
	backend := newFakeBackend()
	store := session.NewMemoryStore(1 << 20)
	svc := newTestService(backend, store)
	reg := NewRegistry(svc, nil)

	record, err := svc.Upload(context.Background(), &domain.SourceFile{
		Name: "contacts.csv", MIMEType: "text/csv", Content: sampleCSV,
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	var sinkCalls int
	req := &RunRequest{
		RecordID:  record.RecordID,
		TableName: "Contacts",
		Sink:      func(domain.ProgressSnapshot) { sinkCalls++ },
	}
	runID := reg.Start(req)

	deadline := time.After(5 * time.Second)
	for {
		state, _ := reg.Get(runID)
		if state.Status != RunStatusRunning {
			break
		}
		select {
		case <-deadline:
			t.Fatal("run never finished")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if sinkCalls == 0 {
		t.Error("caller's sink never received a snapshot")
	}

	// The registry wraps a private copy of the request. The caller's sink
	// field must be untouched: invoking it bumps only the caller's counter
	// and never writes registry progress.
	if req.Sink == nil {
		t.Fatal("caller's sink was cleared")
	}
	before, _ := reg.Get(runID)
	calls := sinkCalls
	req.Sink(domain.ProgressSnapshot{Current: 999999})
	if sinkCalls != calls+1 {
		t.Error("caller's sink was replaced")
	}
	after, _ := reg.Get(runID)
	if after.Progress.Current != before.Progress.Current {
		t.Error("caller's sink feeds the registry, request was mutated")
	}
}

func TestRegistryLifecycle(t *testing.T) {
	backend := newFakeBackend()
	store := session.NewMemoryStore(1 << 20)
	svc := newTestService(backend, store)
	reg := NewRegistry(svc, nil)

	record, err := svc.Upload(context.Background(), &domain.SourceFile{
		Name: "contacts.csv", MIMEType: "text/csv", Content: sampleCSV,
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	runID := reg.Start(&RunRequest{RecordID: record.RecordID, TableName: "Contacts"})

	deadline := time.After(5 * time.Second)
	for {
		state, ok := reg.Get(runID)
		if !ok {
			t.Fatal("run vanished from registry")
		}
		if state.Status != RunStatusRunning {
			if state.Status != RunStatusCompleted {
				t.Fatalf("status = %s (%s), want completed", state.Status, state.Error)
			}
			if state.Result == nil || state.Result.Created != 5 {
				t.Fatalf("result = %+v, want 5 created", state.Result)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("run never finished")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
