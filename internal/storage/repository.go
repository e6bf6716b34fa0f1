package storage

import (
	"encoding/json"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// DB exposes the underlying handle for services that manage their own
// transactions (the trade ledger).
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// Prices

// UpsertPrices writes daily bars, replacing any existing row for the same
// (ticker, date). Last write wins.
func (r *Repository) UpsertPrices(ticker string, bars []PriceBar) error {
	if len(bars) == 0 {
		return nil
	}
	for i := range bars {
		bars[i].Ticker = ticker
	}
	return r.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&bars).Error
}

// Prices returns up to limit most recent bars for ticker in ascending
// date order.
func (r *Repository) Prices(ticker string, limit int) ([]PriceBar, error) {
	var bars []PriceBar
	err := r.db.Where("ticker = ?", ticker).
		Order("date DESC").Limit(limit).Find(&bars).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
	return bars, nil
}

// LatestPriceDate returns the newest cached date for ticker, or "" if the
// ticker has no bars yet.
func (r *Repository) LatestPriceDate(ticker string) (string, error) {
	var date string
	err := r.db.Model(&PriceBar{}).
		Where("ticker = ?", ticker).
		Select("COALESCE(MAX(date), '')").Scan(&date).Error
	return date, err
}

// PriceOnOrAfter returns the first closing price on or after targetDate,
// forward-scanning past weekends and holidays. Returns nil when no bar at or
// beyond the target exists yet.
func (r *Repository) PriceOnOrAfter(ticker, targetDate string) (*float64, error) {
	var bar PriceBar
	err := r.db.Where("ticker = ? AND date >= ?", ticker, targetDate).
		Order("date ASC").First(&bar).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bar.Close, nil
}

// LatestClose returns the most recent closing price for ticker, or nil when
// no bars are cached.
func (r *Repository) LatestClose(ticker string) (*float64, error) {
	var bar PriceBar
	err := r.db.Where("ticker = ?", ticker).Order("date DESC").First(&bar).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bar.Close, nil
}

// Analyses

func (r *Repository) SaveAnalysis(rec *AnalysisRecord) error {
	return r.db.Create(rec).Error
}

// AnalysesForTicker returns the newest analyses first.
func (r *Repository) AnalysesForTicker(ticker string, limit int) ([]AnalysisRecord, error) {
	var recs []AnalysisRecord
	err := r.db.Where("ticker = ?", ticker).
		Order("run_date DESC, id DESC").Limit(limit).Find(&recs).Error
	return recs, err
}

// Macro snapshots

func (r *Repository) UpsertMacro(date string, data map[string]any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	snap := MacroSnapshot{Date: date, Data: string(raw)}
	return r.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&snap).Error
}

// LatestMacro returns the most recent macro snapshot, or an empty map when
// none has been stored.
func (r *Repository) LatestMacro() (map[string]any, error) {
	var snap MacroSnapshot
	err := r.db.Order("date DESC").First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal([]byte(snap.Data), &out); err != nil {
		return nil, err
	}
	return out, nil
}
