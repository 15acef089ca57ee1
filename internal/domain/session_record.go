package domain

import "time"

// FileSessionRecord is the durable-ish surrogate for an uploaded SourceFile
// across navigations. It is written once at upload time, read (and possibly
// escalated through recovery) when an import starts, and deleted after a
// successful import.
type FileSessionRecord struct {
	RecordID         string    `gorm:"type:text;primaryKey" json:"record_id"`
	FileName         string    `gorm:"type:text;not null" json:"file_name"`
	OriginalSize     int64     `gorm:"not null" json:"original_size"`
	Content          string    `gorm:"type:text" json:"content"`
	IsOptimized      bool      `gorm:"default:false" json:"is_optimized"`
	IsHeaderOnly     bool      `gorm:"default:false" json:"is_header_only"`
	TotalLines       int       `gorm:"default:0" json:"total_lines"`
	RequiresReupload bool      `gorm:"default:false" json:"requires_reupload"`
	ArchiveKey       string    `gorm:"type:text" json:"archive_key,omitempty"`
	RemoteFileURL    string    `gorm:"type:text" json:"remote_file_url,omitempty"`
	RemoteFileID     string    `gorm:"type:text" json:"remote_file_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName returns the database table name for FileSessionRecord.
func (FileSessionRecord) TableName() string {
	return "file_session_records"
}

// HasFullContent reports whether the stored content can be trusted as the
// complete file. Header-only and optimized records must go through recovery
// before their content is used as row data.
func (r *FileSessionRecord) HasFullContent() bool {
	if r.IsHeaderOnly || r.IsOptimized || r.RequiresReupload {
		return false
	}
	return int64(len(r.Content)) >= r.OriginalSize
}
