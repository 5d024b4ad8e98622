package catalog

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/liamashdown/polyquant/internal/metrics"
	"github.com/liamashdown/polyquant/internal/polymarket/gammaapi"
)

const lastSyncStateKey = "catalog_last_sync_ts"

// GammaLister is the slice of the Gamma client the syncer needs
type GammaLister interface {
	ListMarkets(ctx context.Context, params gammaapi.ListParams) ([]gammaapi.Market, error)
}

// SyncStore is the slice of the store the syncer writes through
type SyncStore interface {
	UpsertMarkets(ctx context.Context, rows []MarketRow) error
	SetState(ctx context.Context, key, value string) error
}

// Syncer pulls the active market catalog from the Gamma API into the
// local store, page by page.
type Syncer struct {
	store    SyncStore
	gamma    GammaLister
	pageSize int
	log      *logrus.Logger
}

// NewSyncer creates a catalog syncer
func NewSyncer(store SyncStore, gamma GammaLister, pageSize int, log *logrus.Logger) *Syncer {
	return &Syncer{
		store:    store,
		gamma:    gamma,
		pageSize: pageSize,
		log:      log,
	}
}

// Sync pulls every page of active markets and upserts them. A short
// page signals the end of the listing.
func (s *Syncer) Sync(ctx context.Context) error {
	start := time.Now()
	total := 0

	for offset := 0; ; offset += s.pageSize {
		page, err := s.gamma.ListMarkets(ctx, gammaapi.ListParams{
			Limit:  s.pageSize,
			Offset: offset,
			Active: true,
			Closed: false,
		})
		if err != nil {
			metrics.RecordCatalogSync(time.Since(start), total, err)
			return fmt.Errorf("list markets at offset %d: %w", offset, err)
		}

		rows := make([]MarketRow, 0, len(page))
		for _, gm := range page {
			if gm.ConditionID == "" {
				continue
			}
			rows = append(rows, toRow(gm))
		}

		if err := s.store.UpsertMarkets(ctx, rows); err != nil {
			metrics.RecordCatalogSync(time.Since(start), total, err)
			return fmt.Errorf("upsert page at offset %d: %w", offset, err)
		}
		total += len(rows)

		if len(page) < s.pageSize {
			break
		}
	}

	if err := s.store.SetState(ctx, lastSyncStateKey, strconv.FormatInt(time.Now().Unix(), 10)); err != nil {
		s.log.WithError(err).Warn("Failed to checkpoint catalog sync")
	}

	metrics.RecordCatalogSync(time.Since(start), total, nil)
	s.log.WithFields(logrus.Fields{
		"markets":  total,
		"duration": time.Since(start).Round(time.Millisecond).String(),
	}).Info("Catalog sync complete")

	return nil
}

// Run syncs on an interval until the context is cancelled. The first
// sync happens immediately.
func (s *Syncer) Run(ctx context.Context, interval time.Duration) {
	if err := s.Sync(ctx); err != nil {
		s.log.WithError(err).Error("Initial catalog sync failed")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Catalog syncer stopping")
			return
		case <-ticker.C:
			if err := s.Sync(ctx); err != nil {
				s.log.WithError(err).Error("Catalog sync failed")
			}
		}
	}
}

func toRow(gm gammaapi.Market) MarketRow {
	yes, no := gm.TokenIDs()

	var endTS int64
	if gm.EndDate != "" {
		if t, err := time.Parse(time.RFC3339, gm.EndDate); err == nil {
			endTS = t.Unix()
		}
	}

	return MarketRow{
		ConditionID:     gm.ConditionID,
		Question:        gm.Question,
		EventTitle:      gm.EventTitle(),
		Slug:            gm.Slug,
		Category:        gm.Category,
		YesTokenID:      yes,
		NoTokenID:       no,
		VolumeUSD:       gm.VolumeNum,
		LiquidityUSD:    gm.LiquidityNum,
		OutcomeYesPrice: gm.YesPrice(),
		EndDate:         endTS,
		IsActive:        gm.Active && !gm.Closed,
	}
}
