// Package store persists gate decisions and closed trades to SQLite via Gorm.
// The portfolio treats it as optional: a nil store simply skips recording.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"papertrader/internal/portfolio"
	"papertrader/internal/riskgate"
)

// OrderAuditModel 每次闸门裁决一行。
type OrderAuditModel struct {
	ID             string    `gorm:"primaryKey;size:36"`
	Symbol         string    `gorm:"index;size:32"`
	Side           string    `gorm:"size:8"`
	RequestedQty   float64
	AdjustedQty    float64
	Price          float64
	StopLoss       float64
	TakeProfit     float64
	Allowed        bool
	ReasonsJSON    string `gorm:"type:text"`
	ViolationsJSON string `gorm:"type:text"`
	CreatedAt      time.Time
}

func (OrderAuditModel) TableName() string { return "order_audits" }

// TradeJournalModel 每笔已平仓交易一行。
type TradeJournalModel struct {
	ID          string    `gorm:"primaryKey;size:36"`
	Symbol      string    `gorm:"index;size:32"`
	Side        string    `gorm:"size:8"`
	Quantity    float64
	EntryPrice  float64
	ExitPrice   float64
	RealizedPnL float64
	Reason      string    `gorm:"size:255"`
	OpenedAt    time.Time
	ClosedAt    time.Time `gorm:"index"`
	CreatedAt   time.Time
}

func (TradeJournalModel) TableName() string { return "trade_journal" }

type Store struct {
	db *gorm.DB
}

// Open 打开（必要时创建）SQLite 库并迁移表结构。
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("store: path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&OrderAuditModel{}, &TradeJournalModel{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ portfolio.AuditRecorder = (*Store)(nil)
var _ portfolio.JournalRecorder = (*Store)(nil)

// RecordValidation 实现 portfolio.AuditRecorder。
func (s *Store) RecordValidation(req riskgate.OrderRequest, res riskgate.Result) error {
	reasons, _ := json.Marshal(res.Reasons)
	violations, _ := json.Marshal(res.Violations)
	rec := OrderAuditModel{
		ID:             uuid.NewString(),
		Symbol:         strings.ToUpper(strings.TrimSpace(req.Symbol)),
		Side:           req.Side,
		RequestedQty:   req.Quantity,
		AdjustedQty:    res.AdjustedQuantity,
		Price:          req.Price,
		StopLoss:       res.StopLossPrice,
		TakeProfit:     res.TakeProfitPrice,
		Allowed:        res.Allowed,
		ReasonsJSON:    string(reasons),
		ViolationsJSON: string(violations),
		CreatedAt:      time.Now(),
	}
	return s.db.Create(&rec).Error
}

// RecordClosedTrade 实现 portfolio.JournalRecorder。
func (s *Store) RecordClosedTrade(t portfolio.ClosedTrade) error {
	rec := TradeJournalModel{
		ID:          uuid.NewString(),
		Symbol:      t.Symbol,
		Side:        string(t.Side),
		Quantity:    t.Quantity,
		EntryPrice:  t.EntryPrice,
		ExitPrice:   t.ExitPrice,
		RealizedPnL: t.RealizedPnL,
		Reason:      t.Reason,
		OpenedAt:    t.OpenedAt,
		ClosedAt:    t.ClosedAt,
		CreatedAt:   time.Now(),
	}
	return s.db.Create(&rec).Error
}

// RecentAudits 返回最近 limit 条裁决记录（新在前）。
func (s *Store) RecentAudits(limit int) ([]OrderAuditModel, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []OrderAuditModel
	err := s.db.Order("created_at desc").Limit(limit).Find(&out).Error
	return out, err
}

// RecentTrades 返回最近 limit 条已平仓交易（新在前）。
func (s *Store) RecentTrades(limit int) ([]TradeJournalModel, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []TradeJournalModel
	err := s.db.Order("closed_at desc").Limit(limit).Find(&out).Error
	return out, err
}
