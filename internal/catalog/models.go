package catalog

import (
	"time"

	"gorm.io/gorm"
)

// MarketRow caches market metadata pulled from the Gamma API
type MarketRow struct {
	ConditionID     string  `gorm:"primaryKey;size:128"`
	Question        string  `gorm:"size:512;not null;index"`
	EventTitle      string  `gorm:"size:512"`
	Slug            string  `gorm:"size:255;index"`
	Category        string  `gorm:"size:128"`
	YesTokenID      string  `gorm:"size:128"`
	NoTokenID       string  `gorm:"size:128"`
	VolumeUSD       float64 `gorm:"type:decimal(20,6);not null;default:0;index"`
	LiquidityUSD    float64 `gorm:"type:decimal(20,6);default:0"`
	OutcomeYesPrice float64 `gorm:"type:decimal(10,6);default:0.5"`
	EndDate         int64   `gorm:"default:0"`
	IsActive        bool    `gorm:"default:true;index"`
	UpdatedTS       int64   `gorm:"not null;index"`
}

func (MarketRow) TableName() string {
	return "markets"
}

// Run records one recommendation run and where its artifacts landed
type Run struct {
	RunID        string  `gorm:"primaryKey;size:64"`
	Thesis       string  `gorm:"type:text;not null"`
	Status       string  `gorm:"size:32;not null;index"`
	AnchorToken  string  `gorm:"size:128"`
	PositionCnt  int     `gorm:"not null;default:0"`
	ArtifactPath string  `gorm:"size:512"`
	DurationSec  float64 `gorm:"type:decimal(10,3);default:0"`
	CreatedTS    int64   `gorm:"not null;index"`
}

func (Run) TableName() string {
	return "runs"
}

// SyncState checkpoints the catalog sync loop
type SyncState struct {
	StateKey   string `gorm:"primaryKey;size:64"`
	StateValue string `gorm:"type:text;not null"`
	UpdatedTS  int64  `gorm:"not null;index"`
}

func (SyncState) TableName() string {
	return "sync_state"
}

func (m *MarketRow) BeforeCreate(tx *gorm.DB) error {
	if m.UpdatedTS == 0 {
		m.UpdatedTS = time.Now().Unix()
	}
	return nil
}

func (r *Run) BeforeCreate(tx *gorm.DB) error {
	if r.CreatedTS == 0 {
		r.CreatedTS = time.Now().Unix()
	}
	return nil
}

func (s *SyncState) BeforeCreate(tx *gorm.DB) error {
	if s.UpdatedTS == 0 {
		s.UpdatedTS = time.Now().Unix()
	}
	return nil
}
