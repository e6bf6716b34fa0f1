// Package ledger owns the per-user trade log, the holdings projection
// derived from it, and the cash balance kept in lock-step with every trade
// mutation. All mutating operations run inside one storage transaction so a
// crash can never leave holdings and cash half-updated.
package ledger

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/camuig/miner-advisor/internal/logger"
	"github.com/camuig/miner-advisor/internal/storage"
)

const (
	TradeBuy  = "BUY"
	TradeSell = "SELL"
)

type Service struct {
	db     *gorm.DB
	logger *logger.Logger
}

func NewService(db *gorm.DB, log *logger.Logger) *Service {
	return &Service{db: db, logger: log}
}

// TradeInput is a user-entered trade before validation.
type TradeInput struct {
	Ticker   string  `json:"ticker"`
	Date     string  `json:"date"`
	Type     string  `json:"trade_type"`
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
	Notes    string  `json:"notes"`
}

func (s *Service) validate(in TradeInput) error {
	if in.Ticker == "" {
		return &ValidationError{Field: "ticker", Reason: "must not be empty"}
	}
	if in.Type != TradeBuy && in.Type != TradeSell {
		return &ValidationError{Field: "trade_type", Reason: "must be BUY or SELL"}
	}
	if in.Price <= 0 {
		return &ValidationError{Field: "price", Reason: "must be positive"}
	}
	if in.Quantity <= 0 {
		return &ValidationError{Field: "quantity", Reason: "must be positive"}
	}
	if _, err := time.Parse(storage.DateFormat, in.Date); err != nil {
		return &ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	return nil
}

// AddTrade validates and records one trade, then recomputes the ticker's
// holding and applies the cash delta, all in a single transaction.
func (s *Service) AddTrade(ownerID string, in TradeInput) (*storage.Trade, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}

	if in.Type == TradeSell {
		held, err := s.heldShares(ownerID, in.Ticker)
		if err != nil {
			return nil, err
		}
		if in.Quantity > held {
			return nil, &OversellError{Ticker: in.Ticker, Requested: in.Quantity, Held: held}
		}
	}

	trade := &storage.Trade{
		OwnerID:  ownerID,
		Ticker:   in.Ticker,
		Date:     in.Date,
		Type:     in.Type,
		Price:    in.Price,
		Quantity: in.Quantity,
		Notes:    in.Notes,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(trade).Error; err != nil {
			return err
		}
		if err := s.recomputeHolding(tx, ownerID, in.Ticker); err != nil {
			return err
		}
		return adjustCash(tx, ownerID, in.Type, in.Price, in.Quantity, +1)
	})
	if err != nil {
		return nil, err
	}
	return trade, nil
}

// DeleteTrade removes one trade, recomputes the holding and reverses the
// trade's cash effect in a single transaction.
func (s *Service) DeleteTrade(ownerID string, tradeID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var trade storage.Trade
		err := tx.Where("id = ? AND owner_id = ?", tradeID, ownerID).First(&trade).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTradeNotFound
		}
		if err != nil {
			return err
		}
		if err := tx.Delete(&trade).Error; err != nil {
			return err
		}
		if err := s.recomputeHolding(tx, ownerID, trade.Ticker); err != nil {
			return err
		}
		return adjustCash(tx, ownerID, trade.Type, trade.Price, trade.Quantity, -1)
	})
}

// ClosePosition deletes every trade for the ticker together with its holding
// row and reverses each trade's cash effect, as one unit.
func (s *Service) ClosePosition(ownerID, ticker string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var trades []storage.Trade
		if err := tx.Where("owner_id = ? AND ticker = ?", ownerID, ticker).Find(&trades).Error; err != nil {
			return err
		}
		if err := tx.Where("owner_id = ? AND ticker = ?", ownerID, ticker).
			Delete(&storage.Trade{}).Error; err != nil {
			return err
		}
		if err := tx.Where("owner_id = ? AND ticker = ?", ownerID, ticker).
			Delete(&storage.Holding{}).Error; err != nil {
			return err
		}
		for _, t := range trades {
			if err := adjustCash(tx, ownerID, t.Type, t.Price, t.Quantity, -1); err != nil {
				return err
			}
		}
		return nil
	})
}

// Trades returns the owner's full trade log, newest first.
func (s *Service) Trades(ownerID string) ([]storage.Trade, error) {
	var trades []storage.Trade
	err := s.db.Where("owner_id = ?", ownerID).
		Order("date DESC, id DESC").Find(&trades).Error
	return trades, err
}

// Holdings returns the owner's current positions ordered by ticker.
func (s *Service) Holdings(ownerID string) ([]storage.Holding, error) {
	var holdings []storage.Holding
	err := s.db.Where("owner_id = ?", ownerID).
		Order("ticker ASC").Find(&holdings).Error
	return holdings, err
}

// HeldShares returns shares held per ticker for sizing and prompts.
func (s *Service) HeldShares(ownerID string) (map[string]float64, error) {
	holdings, err := s.Holdings(ownerID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(holdings))
	for _, h := range holdings {
		out[h.Ticker] = h.Shares
	}
	return out, nil
}

// UpsertHolding writes a position directly, bypassing the trade log. Used to
// seed legacy positions; the projector later converts them into a synthetic
// BUY the first time a trade touches the ticker.
func (s *Service) UpsertHolding(ownerID, ticker string, shares, avgCost float64) error {
	if shares <= 0 {
		return &ValidationError{Field: "shares", Reason: "must be positive"}
	}
	if avgCost <= 0 {
		return &ValidationError{Field: "avg_cost", Reason: "must be positive"}
	}
	return upsertHolding(s.db, ownerID, ticker, shares, avgCost)
}

func (s *Service) heldShares(ownerID, ticker string) (float64, error) {
	var h storage.Holding
	err := s.db.Where("owner_id = ? AND ticker = ?", ownerID, ticker).First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return h.Shares, nil
}
