// Package catalog persists the Polymarket market catalog in MySQL and
// serves keyword searches against it.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/liamashdown/polyquant/internal/config"
	"github.com/liamashdown/polyquant/internal/market"
	"github.com/liamashdown/polyquant/internal/metrics"
)

// Store wraps the GORM database connection
type Store struct {
	conn *gorm.DB
	log  *logrus.Logger
}

// New creates a new database connection with GORM
func New(cfg *config.Config, log *logrus.Logger) (*Store, error) {
	// Configure GORM logger
	gormLogger := logger.New(
		&gormLogAdapter{log: log},
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	conn, err := gorm.Open(mysql.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.DatabaseMaxConns)
	sqlDB.SetMaxIdleConns(cfg.DatabaseMaxConns / 2)
	sqlDB.SetConnMaxIdleTime(cfg.DatabaseMaxIdleTime)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info("Database connection established")

	return &Store{conn: conn, log: log}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	sqlDB, err := s.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate runs GORM auto-migration (for development only)
func (s *Store) AutoMigrate() error {
	return s.conn.AutoMigrate(
		&MarketRow{},
		&Run{},
		&SyncState{},
	)
}

// Ping verifies the connection is still alive
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// SearchMarkets returns active markets whose question or event title
// matches any keyword, at or above the volume floor, ordered by volume
// descending.
func (s *Store) SearchMarkets(ctx context.Context, keywords []string, minVolumeUSD float64, limit int) ([]market.Market, error) {
	start := time.Now()

	query := s.conn.WithContext(ctx).Model(&MarketRow{}).
		Where("is_active = ?", true).
		Where("volume_usd >= ?", minVolumeUSD)

	if len(keywords) > 0 {
		var conds []string
		var args []interface{}
		for _, kw := range keywords {
			kw = strings.TrimSpace(kw)
			if kw == "" {
				continue
			}
			conds = append(conds, "question LIKE ? OR event_title LIKE ?")
			pattern := "%" + kw + "%"
			args = append(args, pattern, pattern)
		}
		if len(conds) > 0 {
			query = query.Where("("+strings.Join(conds, " OR ")+")", args...)
		}
	}

	var rows []MarketRow
	result := query.Order("volume_usd DESC, condition_id ASC").Limit(limit).Find(&rows)
	metrics.RecordDatabaseQuery("search_markets", result.Error)
	s.log.WithField("duration", time.Since(start).Round(time.Millisecond).String()).Debug("Catalog search")
	if result.Error != nil {
		return nil, fmt.Errorf("search markets: %w", result.Error)
	}

	markets := make([]market.Market, 0, len(rows))
	for _, row := range rows {
		markets = append(markets, row.toMarket())
	}
	return markets, nil
}

// GetMarket retrieves a single market by condition ID
func (s *Store) GetMarket(ctx context.Context, conditionID string) (*market.Market, error) {
	var row MarketRow
	result := s.conn.WithContext(ctx).Where("condition_id = ?", conditionID).First(&row)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	m := row.toMarket()
	return &m, nil
}

// UpsertMarkets inserts or updates market rows in chunks
func (s *Store) UpsertMarkets(ctx context.Context, rows []MarketRow) error {
	if len(rows) == 0 {
		return nil
	}

	now := time.Now().Unix()
	for i := range rows {
		rows[i].UpdatedTS = now
	}

	result := s.conn.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "condition_id"}},
		UpdateAll: true,
	}).CreateInBatches(rows, 200)
	metrics.RecordDatabaseQuery("upsert_markets", result.Error)
	if result.Error != nil {
		return fmt.Errorf("upsert markets: %w", result.Error)
	}

	return nil
}

// MarketCount returns the number of cached markets
func (s *Store) MarketCount(ctx context.Context) (int64, error) {
	var count int64
	result := s.conn.WithContext(ctx).Model(&MarketRow{}).Count(&count)
	return count, result.Error
}

// InsertRun records a recommendation run
func (s *Store) InsertRun(ctx context.Context, run *Run) error {
	result := s.conn.WithContext(ctx).Create(run)
	return result.Error
}

// GetRun retrieves a run by ID
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	var run Run
	result := s.conn.WithContext(ctx).Where("run_id = ?", runID).First(&run)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &run, nil
}

// GetState retrieves a sync state value by key
func (s *Store) GetState(ctx context.Context, key string) (string, error) {
	var state SyncState
	result := s.conn.WithContext(ctx).Where("state_key = ?", key).First(&state)
	if result.Error == gorm.ErrRecordNotFound {
		return "", nil
	}
	if result.Error != nil {
		return "", result.Error
	}
	return state.StateValue, nil
}

// SetState sets a sync state value
func (s *Store) SetState(ctx context.Context, key, value string) error {
	state := SyncState{
		StateKey:   key,
		StateValue: value,
		UpdatedTS:  time.Now().Unix(),
	}
	result := s.conn.WithContext(ctx).Save(&state)
	return result.Error
}

func (r MarketRow) toMarket() market.Market {
	return market.Market{
		ConditionID:     r.ConditionID,
		Question:        r.Question,
		EventTitle:      r.EventTitle,
		Slug:            r.Slug,
		YesTokenID:      r.YesTokenID,
		NoTokenID:       r.NoTokenID,
		VolumeUSD:       r.VolumeUSD,
		OutcomeYesPrice: r.OutcomeYesPrice,
		Active:          r.IsActive,
	}
}

// gormLogAdapter adapts logrus to GORM's logger interface
type gormLogAdapter struct {
	log *logrus.Logger
}

func (l *gormLogAdapter) Printf(format string, args ...interface{}) {
	l.log.Debugf(format, args...)
}
