package models

import (
	"time"

	json "github.com/goccy/go-json"
	"gorm.io/datatypes"
)

// Import sources
const (
	SourceUpload = "upload"
	SourceBucket = "bucket"
	SourceCLI    = "cli"
)

// FileImport is one imported billing export
type FileImport struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Name          string         `gorm:"not null" json:"name"`
	Provider      string         `gorm:"size:16;not null;index" json:"provider"`
	Shape         string         `gorm:"size:8" json:"shape"` // long, wide
	Checksum      string         `gorm:"size:64;uniqueIndex;not null" json:"checksum"`
	SizeBytes     int64          `json:"size_bytes"`
	Encoding      string         `gorm:"size:16" json:"encoding"`
	RowCount      int            `json:"row_count"`
	Source        string         `gorm:"size:16;default:upload" json:"source"`
	ColumnMapping datatypes.JSON `json:"column_mapping"` // role -> source column
	ImportedAt    time.Time      `gorm:"index" json:"imported_at"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// TableName returns the table name for FileImport model
func (FileImport) TableName() string {
	return "file_imports"
}

// SetMapping stores the resolved column roles
func (f *FileImport) SetMapping(m map[string]string) error {
	if len(m) == 0 {
		f.ColumnMapping = nil
		return nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	f.ColumnMapping = datatypes.JSON(raw)
	return nil
}

// Mapping decodes the stored column roles
func (f *FileImport) Mapping() map[string]string {
	if len(f.ColumnMapping) == 0 {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(f.ColumnMapping, &m); err != nil {
		return nil
	}
	return m
}
