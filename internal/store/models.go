// Package store persists execution history (one row per executeScript call
// plus its diagnostics) behind gorm, grounded on the teacher's db package,
// and keeps the in-memory bounded undo/redo snapshot stack of §5.
package store

import (
	"time"

	"gorm.io/datatypes"
)

// Run is one recorded executor.Execute call.
type Run struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)"`
	MapperID   string    `gorm:"type:varchar(36);index"`
	Script     string    `gorm:"type:text"`
	Input      string    `gorm:"type:text"`
	Output     string    `gorm:"type:text"`
	Error      string    `gorm:"type:text"`
	DurationMs int64     `gorm:"not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index"`

	Diagnostics []Diagnostic `gorm:"foreignKey:RunID"`
}

// Diagnostic is one captured console.log/warn/error line (or transpiler
// warning) tied to a Run.
type Diagnostic struct {
	ID       uint           `gorm:"primaryKey;autoIncrement"`
	RunID    string         `gorm:"type:varchar(36);index"`
	Severity string         `gorm:"type:varchar(10);not null"`
	Message  string         `gorm:"type:text"`
	Code     string         `gorm:"type:varchar(50)"`
	Line     int            `gorm:"default:0"`
	Extra    datatypes.JSON `gorm:"type:jsonb"`
}
