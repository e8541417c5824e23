// Package ordermanager is the authoritative order intake point: a
// multi-client TCP server that validates, journals and acknowledges orders.
package ordermanager

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"trading_go/internal/domain"
)

// OrderRecord is one immutable journal row. Seq is the server-assigned
// journal sequence, monotonic across all client connections. Rows are only
// ever inserted; order ids are advisory and never deduplicated.
type OrderRecord struct {
	Seq      uint   `gorm:"primaryKey;autoIncrement"`
	OrderID  string `gorm:"index"`
	Side     string
	Symbol   string
	Qty      int64
	Price    string // decimal string, exact
	OrderTs  int64  // client timestamp, unix ms
	LoggedAt time.Time
}

// Journal is the append-only order log. A single mutex serializes appends
// from all connections so records never interleave.
type Journal struct {
	mu sync.Mutex
	db *gorm.DB
}

// NewJournal opens (or creates) the SQLite-backed journal at path.
func NewJournal(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("journal: create directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}

	if err := db.AutoMigrate(&OrderRecord{}); err != nil {
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}

	return &Journal{db: db}, nil
}

// Append inserts one record and returns its journal sequence.
func (j *Journal) Append(o domain.Order) (uint, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rec := OrderRecord{
		OrderID:  o.ID,
		Side:     o.Side,
		Symbol:   o.Symbol,
		Qty:      o.Qty,
		Price:    o.Price.String(),
		OrderTs:  o.Ts,
		LoggedAt: time.Now(),
	}
	if err := j.db.Create(&rec).Error; err != nil {
		return 0, fmt.Errorf("journal: append: %w", err)
	}
	return rec.Seq, nil
}

// Records returns all rows in sequence order.
func (j *Journal) Records() ([]OrderRecord, error) {
	var recs []OrderRecord
	err := j.db.Order("seq").Find(&recs).Error
	return recs, err
}

// Count returns the number of journaled orders.
func (j *Journal) Count() (int64, error) {
	var n int64
	err := j.db.Model(&OrderRecord{}).Count(&n).Error
	return n, err
}
