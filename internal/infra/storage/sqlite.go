package storage

import (
	"context"
	"fmt"

	"dex_sim/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Ledger journals MEV results and arbitrage opportunities for the running
// session. It lives in an in-memory SQLite database and is gone on exit.
type Ledger struct {
	db *gorm.DB
}

// Summary aggregates the ledger contents.
type Summary struct {
	MevResults        int64           `json:"mev_results"`
	MevSuccesses      int64           `json:"mev_successes"`
	MevProfit         decimal.Decimal `json:"mev_profit"`
	Opportunities     int64           `json:"opportunities"`
	Executed          int64           `json:"executed"`
	OpportunityProfit decimal.Decimal `json:"opportunity_net_profit"`
}

// NewLedger opens an empty in-memory ledger.
func NewLedger() (*Ledger, error) {
	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	// Every pooled connection would get its own empty :memory: database.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access ledger pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	// Auto Migration
	if err := db.AutoMigrate(&domain.MevRecord{}, &domain.OpportunityRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate ledger: %w", err)
	}

	return &Ledger{db: db}, nil
}

// Close releases the database. The journal is discarded.
func (l *Ledger) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ======================================================================================
// MEV Operations
// ======================================================================================

// SaveMevResult records one strategy run.
func (l *Ledger) SaveMevResult(ctx context.Context, r domain.MevResult) error {
	return l.db.WithContext(ctx).Save(domain.NewMevRecord(r)).Error
}

// MevResults returns up to limit results, newest first.
func (l *Ledger) MevResults(ctx context.Context, limit int) ([]domain.MevRecord, error) {
	var rows []domain.MevRecord
	err := l.db.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&rows).Error
	return rows, err
}

// ClearMevResults deletes every MEV result.
func (l *Ledger) ClearMevResults(ctx context.Context) error {
	return l.db.WithContext(ctx).Where("1 = 1").Delete(&domain.MevRecord{}).Error
}

// ======================================================================================
// Opportunity Operations
// ======================================================================================

// SaveOpportunities records one scan.
func (l *Ledger) SaveOpportunities(ctx context.Context, seq uint64, opps []domain.ArbitrageOpportunity) error {
	if len(opps) == 0 {
		return nil
	}
	rows := make([]*domain.OpportunityRecord, 0, len(opps))
	for _, o := range opps {
		rows = append(rows, domain.NewOpportunityRecord(seq, o))
	}
	return l.db.WithContext(ctx).CreateInBatches(rows, 100).Error
}

// MarkExecuted flags an opportunity as paper executed.
func (l *Ledger) MarkExecuted(ctx context.Context, opportunityID string) error {
	res := l.db.WithContext(ctx).Model(&domain.OpportunityRecord{}).
		Where("id = ?", opportunityID).
		Update("executed", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("opportunity %s: %w", opportunityID, gorm.ErrRecordNotFound)
	}
	return nil
}

// Opportunities returns up to limit recorded opportunities for pair, newest
// first. An empty pair matches every pair.
func (l *Ledger) Opportunities(ctx context.Context, pair string, limit int) ([]domain.OpportunityRecord, error) {
	q := l.db.WithContext(ctx).Order("seq desc").Limit(limit)
	if pair != "" {
		q = q.Where("pair = ?", pair)
	}
	var rows []domain.OpportunityRecord
	err := q.Find(&rows).Error
	return rows, err
}

// ClearOpportunities deletes opportunities for pair, or all when pair is empty.
func (l *Ledger) ClearOpportunities(ctx context.Context, pair string) error {
	q := l.db.WithContext(ctx)
	if pair == "" {
		q = q.Where("1 = 1")
	} else {
		q = q.Where("pair = ?", pair)
	}
	return q.Delete(&domain.OpportunityRecord{}).Error
}

// ======================================================================================
// Summary
// ======================================================================================

// Summary totals the journal. Profits are stored as text, so they are
// summed here rather than in SQL.
func (l *Ledger) Summary(ctx context.Context) (Summary, error) {
	sum := Summary{MevProfit: decimal.Zero, OpportunityProfit: decimal.Zero}
	db := l.db.WithContext(ctx)

	var mev []domain.MevRecord
	if err := db.Find(&mev).Error; err != nil {
		return sum, err
	}
	sum.MevResults = int64(len(mev))
	for _, r := range mev {
		if r.Success {
			sum.MevSuccesses++
			sum.MevProfit = sum.MevProfit.Add(r.Profit)
		}
	}

	var opps []domain.OpportunityRecord
	if err := db.Find(&opps).Error; err != nil {
		return sum, err
	}
	sum.Opportunities = int64(len(opps))
	for _, o := range opps {
		if o.Executed {
			sum.Executed++
		}
		sum.OpportunityProfit = sum.OpportunityProfit.Add(o.NetProfit)
	}
	return sum, nil
}
