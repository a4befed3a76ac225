package models

import (
	"regexp"
	"time"

	"gorm.io/gorm"
)

// SnapshotTrigger records what created a snapshot.
type SnapshotTrigger string

const (
	// SnapshotTriggerManual is a snapshot requested through the CLI or API.
	SnapshotTriggerManual SnapshotTrigger = "manual"
	// SnapshotTriggerScheduled is a snapshot created by the cron schedule.
	SnapshotTriggerScheduled SnapshotTrigger = "scheduled"
)

var checksumPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// ThemeSnapshot is a persisted, fully resolved theme.
// CSS holds the canonical resolved stylesheet; Checksum is its SHA-256.
type ThemeSnapshot struct {
	BaseModel

	ThemeID     string          `gorm:"not null;size:128;index:idx_theme_snapshots_theme" json:"theme_id"`
	ThemeName   string          `gorm:"not null;size:255" json:"theme_name"`
	ColorFormat string          `gorm:"not null;size:16;default:'preserve'" json:"color_format"`
	Checksum    string          `gorm:"not null;size:64;index" json:"checksum"`
	TokenCount  int             `gorm:"not null" json:"token_count"`
	Trigger     SnapshotTrigger `gorm:"not null;size:16;default:'manual'" json:"trigger"`
	Note        string          `gorm:"size:512" json:"note,omitempty"`
	CSS         string          `gorm:"type:text;not null" json:"css,omitempty"`
}

// TableName returns the table name for ThemeSnapshot.
func (ThemeSnapshot) TableName() string {
	return "theme_snapshots"
}

// Validate checks the snapshot for required fields.
func (s *ThemeSnapshot) Validate() error {
	if s.ThemeID == "" {
		return ErrThemeIDRequired
	}
	if !checksumPattern.MatchString(s.Checksum) {
		return ErrValidation{Field: "checksum", Message: "must be a lowercase hex SHA-256 digest"}
	}
	if s.CSS == "" {
		return ErrSnapshotCSSRequired
	}
	if s.TokenCount < 0 {
		return ErrValidation{Field: "token_count", Message: "must be non-negative"}
	}
	switch s.Trigger {
	case "":
		s.Trigger = SnapshotTriggerManual
	case SnapshotTriggerManual, SnapshotTriggerScheduled:
	default:
		return ErrValidation{Field: "trigger", Message: "must be 'manual' or 'scheduled'"}
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the snapshot and generates ULID.
func (s *ThemeSnapshot) BeforeCreate(tx *gorm.DB) error {
	if err := s.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return s.Validate()
}

// SnapshotSummary is a snapshot without its stylesheet body.
type SnapshotSummary struct {
	ID          ULID            `json:"id"`
	ThemeID     string          `json:"theme_id"`
	ThemeName   string          `json:"theme_name"`
	ColorFormat string          `json:"color_format"`
	Checksum    string          `json:"checksum"`
	TokenCount  int             `json:"token_count"`
	Trigger     SnapshotTrigger `json:"trigger"`
	Note        string          `json:"note,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Summary returns the snapshot without its CSS body.
func (s *ThemeSnapshot) Summary() SnapshotSummary {
	return SnapshotSummary{
		ID:          s.ID,
		ThemeID:     s.ThemeID,
		ThemeName:   s.ThemeName,
		ColorFormat: s.ColorFormat,
		Checksum:    s.Checksum,
		TokenCount:  s.TokenCount,
		Trigger:     s.Trigger,
		Note:        s.Note,
		CreatedAt:   s.CreatedAt,
	}
}

// SnapshotScheduleInfo represents the snapshot schedule configuration for API responses.
type SnapshotScheduleInfo struct {
	Enabled   bool       `json:"enabled"`
	Cron      string     `json:"cron"`
	Retention int        `json:"retention"`
	Themes    []string   `json:"themes"`
	NextRun   *time.Time `json:"next_run,omitempty"`
}
