package ledger

import (
	"errors"
	"math"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/camuig/miner-advisor/internal/storage"
)

// recomputeHolding replays the full trade history for (ownerID, ticker) and
// rewrites the holding row. Runs inside the caller's transaction.
//
// Replay uses volume-weighted average cost: each BUY recomputes avg_cost
// from the full running totals, SELL reduces shares without touching
// avg_cost. SELL clamps at zero as a last-resort safety net; the oversell
// check in AddTrade is the real boundary.
func (s *Service) recomputeHolding(tx *gorm.DB, ownerID, ticker string) error {
	if err := s.migrateLegacyPosition(tx, ownerID, ticker); err != nil {
		return err
	}

	var trades []storage.Trade
	err := tx.Where("owner_id = ? AND ticker = ?", ownerID, ticker).
		Order("date ASC, id ASC").Find(&trades).Error
	if err != nil {
		return err
	}

	shares := 0.0
	avgCost := 0.0
	for _, t := range trades {
		switch t.Type {
		case TradeBuy:
			totalCost := shares*avgCost + t.Quantity*t.Price
			shares += t.Quantity
			avgCost = totalCost / shares
		case TradeSell:
			shares = math.Max(0, shares-t.Quantity)
		}
	}

	if shares <= 0 {
		return tx.Where("owner_id = ? AND ticker = ?", ownerID, ticker).
			Delete(&storage.Holding{}).Error
	}
	// Rounding happens only at the persistence boundary.
	return upsertHolding(tx, ownerID, ticker, roundTo(shares, 8), roundTo(avgCost, 4))
}

// migrateLegacyPosition converts a hand-entered holding into a ledger-backed
// one by synthesizing its initial BUY. It fires only when the ticker has a
// holding with positive shares but zero BUY rows, so a second run finds the
// synthetic BUY and does nothing. It must never fail the surrounding trade
// operation over a date it cannot determine; it falls back to today.
func (s *Service) migrateLegacyPosition(tx *gorm.DB, ownerID, ticker string) error {
	var n int64
	err := tx.Model(&storage.Trade{}).
		Where("owner_id = ? AND ticker = ? AND type = ?", ownerID, ticker, TradeBuy).
		Count(&n).Error
	if err != nil || n > 0 {
		return err
	}

	var existing storage.Holding
	err = tx.Where("owner_id = ? AND ticker = ?", ownerID, ticker).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.Shares <= 0 {
		return nil
	}

	seedDate := time.Now().Format(storage.DateFormat)
	var firstDate string
	err = tx.Model(&storage.Trade{}).
		Where("owner_id = ? AND ticker = ?", ownerID, ticker).
		Select("COALESCE(MIN(date), '')").Scan(&firstDate).Error
	if err != nil {
		return err
	}
	if firstDate != "" {
		if d, perr := time.Parse(storage.DateFormat, firstDate); perr == nil {
			seedDate = d.AddDate(0, 0, -1).Format(storage.DateFormat)
		}
	}

	seed := storage.Trade{
		OwnerID:  ownerID,
		Ticker:   ticker,
		Date:     seedDate,
		Type:     TradeBuy,
		Price:    existing.AvgCost,
		Quantity: existing.Shares,
		Notes:    "initial position (auto-migrated)",
	}
	if err := tx.Create(&seed).Error; err != nil {
		return err
	}
	s.logger.Info("migrated legacy position into trade log",
		"ticker", ticker, "shares", existing.Shares, "date", seedDate)
	return nil
}

func upsertHolding(tx *gorm.DB, ownerID, ticker string, shares, avgCost float64) error {
	h := storage.Holding{OwnerID: ownerID, Ticker: ticker, Shares: shares, AvgCost: avgCost}
	return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&h).Error
}

func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
