package model

import "time"

// Verification is one logged URL check. Rows of the same VerifyAll call share a BatchID.
type Verification struct {
	ID            int64     `gorm:"primaryKey"`
	BatchID       string    `gorm:"size:36;index;not null"`
	URL           string    `gorm:"size:2048;not null"`
	IsActive      bool      `gorm:"not null"`
	HasNewsletter bool      `gorm:"not null"`
	HasRSS        bool      `gorm:"column:has_rss;not null"`
	Error         string    `gorm:"size:1024"`
	CheckedAt     time.Time `gorm:"index;not null"`
}
