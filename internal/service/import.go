// Package service wires the import pipeline end to end: upload intake,
// mapping proposal, schema provisioning, batch execution and verification.
// Handlers and the CLI runner talk to this package, never to the lower
// layers directly.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/gridport/internal/datastore"
	"github.com/timmy/gridport/internal/domain"
	"github.com/timmy/gridport/internal/engine"
	"github.com/timmy/gridport/internal/logger"
	"github.com/timmy/gridport/internal/mapping"
	"github.com/timmy/gridport/internal/parser"
	"github.com/timmy/gridport/internal/provision"
	"github.com/timmy/gridport/internal/recovery"
	"github.com/timmy/gridport/internal/session"
	"github.com/timmy/gridport/internal/storage"
)

// FileAPI is the slice of the datastore client used to keep a remote copy
// of the upload. May be nil when the deployment has no file endpoint.
type FileAPI interface {
	UploadFile(ctx context.Context, name, mimeType, content string) (*datastore.FileDescriptor, error)
}

// ImportService orchestrates one operator's import workflow.
type ImportService struct {
	sessions    session.Store
	recovery    *recovery.Manager
	provisioner *provision.Provisioner
	engine      *engine.Engine
	files       FileAPI
	archive     storage.ObjectStorage // may be nil
}

// NewImportService creates the orchestration service.
// Parameters:
//   - sessions: session-scoped record store.
//   - rec: content recovery manager.
//   - provisioner: destination schema provisioner.
//   - eng: batch import engine.
//   - files: datastore file endpoint, or nil.
//   - archive: upload archive storage, or nil.
// Returns:
//   - *ImportService: initialized service.
func NewImportService(
	sessions session.Store,
	rec *recovery.Manager,
	provisioner *provision.Provisioner,
	eng *engine.Engine,
	files FileAPI,
	archive storage.ObjectStorage,
) *ImportService {
	return &ImportService{
		sessions:    sessions,
		recovery:    rec,
		provisioner: provisioner,
		engine:      eng,
		files:       files,
		archive:     archive,
	}
}

// Upload takes a raw source file into the session. The remote file copy and
// the archive copy are best-effort; losing them only removes recovery tiers.
// The session write itself escalates through smaller shapes under quota
// pressure and never fails the upload outright.
func (s *ImportService) Upload(ctx context.Context, file *domain.SourceFile) (*domain.FileSessionRecord, error) {
	if strings.TrimSpace(file.Content) == "" {
		return nil, fmt.Errorf("uploaded file %q is empty", file.Name)
	}

	record := &domain.FileSessionRecord{
		RecordID:     uuid.New().String(),
		FileName:     file.Name,
		OriginalSize: int64(len(file.Content)),
		TotalLines:   parser.CountLines(file.Content),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if s.files != nil {
		desc, err := s.files.UploadFile(ctx, file.Name, file.MIMEType, file.Content)
		if err != nil {
			logger.CtxWarn(ctx, "Remote file copy failed for %s, re-fetch recovery unavailable: %v", file.Name, err)
		} else {
			record.RemoteFileID = desc.ID
			record.RemoteFileURL = desc.URL
		}
	}

	if s.archive != nil {
		key := fmt.Sprintf("uploads/%s/%s", record.RecordID, file.Name)
		reader := strings.NewReader(file.Content)
		if err := s.archive.Upload(ctx, key, reader, int64(len(file.Content)), file.MIMEType); err != nil {
			logger.CtxWarn(ctx, "Archive upload failed for %s, archive recovery unavailable: %v", file.Name, err)
		} else {
			record.ArchiveKey = key
		}
	}

	if err := session.Persist(ctx, s.sessions, record, file.Content); err != nil {
		return nil, fmt.Errorf("persist session record: %w", err)
	}
	s.recovery.Register(record.RecordID, file.Content)

	logger.With(logger.Fields{
		logger.FieldRecordID: record.RecordID,
		logger.FieldSize:     record.OriginalSize,
		logger.FieldCount:    record.TotalLines,
	}).Info(ctx, "Upload accepted: %s", file.Name)
	return record, nil
}

// Session returns the stored session record, or nil when unknown.
func (s *ImportService) Session(ctx context.Context, recordID string) (*domain.FileSessionRecord, error) {
	return s.sessions.Get(ctx, recordID)
}

// ProposeMapping builds the default column mapping for a header against the
// candidate target fields. An empty candidate list maps the file onto
// itself, which is the auto-mapping the CLI runner uses.
func (s *ImportService) ProposeMapping(header, candidates []string) []domain.ColumnMapping {
	if len(candidates) == 0 {
		candidates = header
	}
	return mapping.Propose(header, candidates).Entries()
}

// MappingChange is one operator adjustment to a proposed mapping.
type MappingChange struct {
	SourceColumn string `json:"source_column"`
	TargetField  string `json:"target_field"`
	Ignore       bool   `json:"ignore"`
}

// AdjustMapping applies operator changes to a mapping set with conflict
// eviction. Operator assignments carry the locked score so a later change
// cannot silently evict them.
func (s *ImportService) AdjustMapping(current []domain.ColumnMapping, changes []MappingChange) []domain.ColumnMapping {
	set := mapping.NewSet(current)
	for _, change := range changes {
		if change.Ignore {
			set.Ignore(change.SourceColumn)
			continue
		}
		set.Assign(change.SourceColumn, change.TargetField, 100)
	}
	return set.Entries()
}

// RunRequest describes one import run over a previously uploaded file.
type RunRequest struct {
	RecordID  string
	TableName string
	// Mapping is the operator-confirmed column mapping. Empty means
	// auto-map the header onto itself.
	Mapping []domain.ColumnMapping
	Sink    domain.ProgressSink
}

// Run executes the full pipeline: recover content, parse, provision the
// destination schema, import, verify, clean up the session. The session
// record survives a failed run so the operator can retry without
// re-uploading.
func (s *ImportService) Run(ctx context.Context, req *RunRequest) (*domain.ImportResult, error) {
	record, err := s.sessions.Get(ctx, req.RecordID)
	if err != nil {
		return nil, fmt.Errorf("load session record: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("unknown session record %s: %w", req.RecordID, domain.ErrContentUnavailable)
	}

	content := s.recovery.Recover(ctx, record, record.Content)
	if !recovery.Sufficient(record, content) {
		if record.RequiresReupload {
			return nil, fmt.Errorf("file %s exceeded every cache shape and must be uploaded again: %w",
				record.FileName, domain.ErrContentUnavailable)
		}
		return nil, fmt.Errorf("content for %s could not be recovered, retry with the original file: %w",
			record.FileName, domain.ErrContentUnavailable)
	}

	parsed := parser.ParseContent(content)
	if len(parsed.Header) == 0 {
		return nil, fmt.Errorf("file %s has no header row: %w", record.FileName, domain.ErrContentUnavailable)
	}

	mappings := req.Mapping
	if len(mappings) == 0 {
		mappings = s.ProposeMapping(parsed.Header, nil)
	}
	targets := domain.MappedTargets(mappings)
	if len(targets) == 0 {
		return nil, domain.ErrMissingFieldMapping
	}

	tableName := req.TableName
	if tableName == "" {
		tableName = strings.TrimSuffix(record.FileName, ".csv")
	}

	prov, err := s.provisioner.Provision(ctx, tableName, targets)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.Run(ctx, &engine.Input{
		Rows:      parsed.Rows,
		Header:    parsed.Header,
		Mapping:   mappings,
		FieldMap:  prov.FieldMap,
		TableID:   prov.TableID,
		TableName: tableName,
		Sink:      req.Sink,
	})
	if err != nil {
		return nil, err
	}

	s.verify(ctx, result)
	s.cleanup(ctx, record)
	return result, nil
}

// verify attaches the observed destination row count to the result. A
// mismatch is advisory; the run already succeeded.
func (s *ImportService) verify(ctx context.Context, result *domain.ImportResult) {
	count, err := s.engine.Verify(ctx, result.TableID)
	if err != nil {
		logger.CtxWarn(ctx, "Verification failed for table %s: %v", result.TableID, err)
		return
	}
	result.VerifiedRows = count
	if count != result.Created {
		mismatch := &domain.VerificationMismatch{Expected: result.Created, Actual: count}
		logger.With(logger.Fields{
			logger.FieldTableID: result.TableID,
		}).Warn(ctx, "%v", mismatch)
	}
}

// cleanup drops the session record and cached content after a successful
// run. Failures here are logged only; the import already finished.
func (s *ImportService) cleanup(ctx context.Context, record *domain.FileSessionRecord) {
	if err := s.sessions.Delete(ctx, record.RecordID); err != nil {
		logger.CtxWarn(ctx, "Session cleanup failed for record %s: %v", record.RecordID, err)
	}
	s.recovery.Forget(record.RecordID)
}
