package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MevRecord is a session ledger row for one MevResult.
type MevRecord struct {
	ID        string          `gorm:"primaryKey" json:"id"`
	Strategy  string          `json:"strategy" gorm:"index"`
	TargetTx  string          `json:"target_tx"`
	Profit    decimal.Decimal `json:"profit" gorm:"type:text"`
	GasUsed   int64           `json:"gas_used"`
	GasPrice  int64           `json:"gas_price"`
	Success   bool            `json:"success" gorm:"index"`
	CreatedAt time.Time       `json:"created_at"`
}

// OpportunityRecord is a session ledger row for one detected opportunity.
type OpportunityRecord struct {
	ID          string          `gorm:"primaryKey" json:"id"`
	Seq         uint64          `json:"seq" gorm:"index"`
	Pair        string          `json:"pair" gorm:"index"`
	BuyVenue    string          `json:"buy_dex"`
	SellVenue   string          `json:"sell_dex"`
	GrossProfit decimal.Decimal `json:"profit" gorm:"type:text"`
	NetProfit   decimal.Decimal `json:"net_profit" gorm:"type:text"`
	Risk        string          `json:"risk_level"`
	Executed    bool            `json:"executed"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewMevRecord maps a result onto its ledger row.
func NewMevRecord(r MevResult) *MevRecord {
	return &MevRecord{
		ID:        r.ID,
		Strategy:  string(r.Strategy),
		TargetTx:  r.TargetTx,
		Profit:    r.Profit,
		GasUsed:   r.GasUsed,
		GasPrice:  r.GasPrice,
		Success:   r.Success,
		CreatedAt: r.Timestamp,
	}
}

// NewOpportunityRecord maps an opportunity onto its ledger row.
func NewOpportunityRecord(seq uint64, o ArbitrageOpportunity) *OpportunityRecord {
	return &OpportunityRecord{
		ID:          o.ID,
		Seq:         seq,
		Pair:        o.Pair,
		BuyVenue:    o.BuyVenue,
		SellVenue:   o.SellVenue,
		GrossProfit: o.GrossProfit,
		NetProfit:   o.NetProfit,
		Risk:        string(o.Risk),
		CreatedAt:   o.Timestamp,
	}
}
