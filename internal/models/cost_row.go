package models

import "time"

// CostRow is the persisted (file, date, service, cost) tuple
type CostRow struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	FileImportID uint       `gorm:"not null;index:idx_cost_rows_file_date,priority:1" json:"file_id"`
	UsageDate    *time.Time `gorm:"index:idx_cost_rows_file_date,priority:2" json:"usage_date"`
	ServiceName  string     `gorm:"not null" json:"service_name"`
	CostAmount   float64    `gorm:"not null;default:0" json:"cost_amount"`
}

// TableName returns the table name for CostRow model
func (CostRow) TableName() string {
	return "cost_rows"
}
