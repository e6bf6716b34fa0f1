package ledger

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/camuig/miner-advisor/internal/storage"
)

// adjustCash applies one trade's cash effect: -cost for BUY, +proceeds for
// SELL. sign=-1 reverses a previous application exactly, so insert and
// delete round-trip to the original balance.
func adjustCash(tx *gorm.DB, ownerID, tradeType string, price, quantity float64, sign float64) error {
	current, err := readCash(tx, ownerID)
	if err != nil {
		return err
	}
	switch tradeType {
	case TradeBuy:
		current -= sign * price * quantity
	case TradeSell:
		current += sign * price * quantity
	}
	return writeCash(tx, ownerID, current)
}

// Cash returns the owner's balance, zero when never set.
func (s *Service) Cash(ownerID string) (float64, error) {
	return readCash(s.db, ownerID)
}

// SetCash overwrites the balance.
func (s *Service) SetCash(ownerID string, amount float64) error {
	if amount < 0 {
		return &ValidationError{Field: "amount", Reason: "must be non-negative"}
	}
	return writeCash(s.db, ownerID, amount)
}

// Deposit adds amount to the balance.
func (s *Service) Deposit(ownerID string, amount float64) error {
	if amount < 0 {
		return &ValidationError{Field: "amount", Reason: "must be non-negative"}
	}
	current, err := readCash(s.db, ownerID)
	if err != nil {
		return err
	}
	return writeCash(s.db, ownerID, current+amount)
}

// Withdraw subtracts amount from the balance.
func (s *Service) Withdraw(ownerID string, amount float64) error {
	if amount < 0 {
		return &ValidationError{Field: "amount", Reason: "must be non-negative"}
	}
	current, err := readCash(s.db, ownerID)
	if err != nil {
		return err
	}
	return writeCash(s.db, ownerID, current-amount)
}

func readCash(tx *gorm.DB, ownerID string) (float64, error) {
	var cb storage.CashBalance
	err := tx.Where("owner_id = ?", ownerID).First(&cb).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return cb.Value, nil
}

func writeCash(tx *gorm.DB, ownerID string, value float64) error {
	cb := storage.CashBalance{OwnerID: ownerID, Value: roundTo(value, 2)}
	return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&cb).Error
}
