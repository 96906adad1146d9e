package model

import "time"

// SingleUseTokenModel mirrors the 'single_use_tokens' table.
// The primary key keeps one row per (kind, email); the unique index makes codes unambiguous per kind.
type SingleUseTokenModel struct {
	Kind     string    `gorm:"type:varchar(32);primaryKey;uniqueIndex:idx_single_use_tokens_kind_code,priority:1"`
	Email    string    `gorm:"type:varchar(255);primaryKey"`
	Code     string    `gorm:"type:varchar(16);not null;uniqueIndex:idx_single_use_tokens_kind_code,priority:2"`
	IssuedAt time.Time `gorm:"not null"`
}

// TableName explicitly sets the table name for GORM.
func (SingleUseTokenModel) TableName() string {
	return "single_use_tokens"
}
