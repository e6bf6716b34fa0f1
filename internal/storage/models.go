package storage

import "time"

// DateFormat is the canonical day format used for price bars, trades and
// analysis run dates. Lexicographic order equals chronological order.
const DateFormat = "2006-01-02"

// PriceBar is one cached daily OHLCV row. Re-fetching the same (ticker, date)
// overwrites the previous row.
type PriceBar struct {
	Ticker string  `gorm:"primaryKey" json:"ticker"`
	Date   string  `gorm:"primaryKey" json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

func (PriceBar) TableName() string { return "prices" }

// Trade is one BUY or SELL entered by a user. Rows are append-only except
// for explicit deletes; (Date ASC, ID ASC) is the replay order.
type Trade struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	OwnerID  string  `gorm:"index;not null" json:"-"`
	Ticker   string  `gorm:"index;not null" json:"ticker"`
	Date     string  `gorm:"not null" json:"date"`
	Type     string  `gorm:"not null" json:"trade_type"` // BUY or SELL
	Price    float64 `gorm:"not null" json:"price"`
	Quantity float64 `gorm:"not null" json:"quantity"`
	Notes    string  `json:"notes"`
}

// Holding is the materialized projection of the trade ledger for one ticker.
// It is recomputed on every trade mutation and never edited directly.
type Holding struct {
	OwnerID string  `gorm:"primaryKey" json:"-"`
	Ticker  string  `gorm:"primaryKey" json:"ticker"`
	Shares  float64 `gorm:"not null" json:"shares"`
	AvgCost float64 `gorm:"not null" json:"avg_cost"`
}

// CashBalance is a per-owner accumulator adjusted in lock-step with trades.
type CashBalance struct {
	OwnerID string  `gorm:"primaryKey" json:"-"`
	Value   float64 `gorm:"not null" json:"value"`
}

// AnalysisRecord is one immutable recommendation produced by an analysis run.
// Multiple runs per day are all retained.
type AnalysisRecord struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	RunDate        string `gorm:"index" json:"run_date"`
	Ticker         string `gorm:"index" json:"ticker"`
	Signals        string `gorm:"type:text" json:"signals"`
	Recommendation string `json:"recommendation"` // BUY, SELL or HOLD
	Reasoning      string `gorm:"type:text" json:"reasoning"`
	Confidence     string `json:"confidence"` // LOW, MEDIUM or HIGH
	KeyRisk        string `json:"key_risk"`
}

func (AnalysisRecord) TableName() string { return "analyses" }

// MacroSnapshot holds one day's macro signal set as opaque JSON.
type MacroSnapshot struct {
	Date string `gorm:"primaryKey" json:"date"`
	Data string `gorm:"type:text;not null" json:"data"`
}

// Setting is a per-owner key/value row (risk tier, capital, active tickers).
type Setting struct {
	OwnerID string `gorm:"primaryKey"`
	Key     string `gorm:"primaryKey"`
	Value   string
}

type User struct {
	ID        string    `gorm:"primarykey" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null" json:"username"`
	PwHash    string    `gorm:"not null" json:"-"`
	PwSalt    string    `gorm:"not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
}

type Session struct {
	Token     string    `gorm:"primarykey"`
	UserID    string    `gorm:"index;not null"`
	CreatedAt time.Time
	LastSeen  time.Time
	UserAgent string
}
