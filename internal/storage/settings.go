package storage

import (
	"encoding/json"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Setting returns the stored value for (ownerID, key), or fallback when the
// row does not exist.
func (r *Repository) Setting(ownerID, key, fallback string) (string, error) {
	var s Setting
	err := r.db.Where("owner_id = ? AND key = ?", ownerID, key).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fallback, nil
	}
	if err != nil {
		return fallback, err
	}
	return s.Value, nil
}

func (r *Repository) SetSetting(ownerID, key, value string) error {
	s := Setting{OwnerID: ownerID, Key: key, Value: value}
	return r.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&s).Error
}

// ActiveTickers returns the owner's tracked ticker list, falling back to
// defaults when none has been saved.
func (r *Repository) ActiveTickers(ownerID string, defaults []string) []string {
	raw, err := r.Setting(ownerID, "active_tickers", "")
	if err != nil || raw == "" {
		return append([]string(nil), defaults...)
	}
	var tickers []string
	if err := json.Unmarshal([]byte(raw), &tickers); err != nil {
		return append([]string(nil), defaults...)
	}
	return tickers
}

// AddActiveTicker appends ticker to the owner's tracked list if absent.
func (r *Repository) AddActiveTicker(ownerID, ticker string, defaults []string) error {
	current := r.ActiveTickers(ownerID, defaults)
	for _, t := range current {
		if t == ticker {
			return nil
		}
	}
	current = append(current, ticker)
	raw, err := json.Marshal(current)
	if err != nil {
		return err
	}
	return r.SetSetting(ownerID, "active_tickers", string(raw))
}
