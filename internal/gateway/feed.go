// Package gateway is the sole source of the simulated price and sentiment
// streams and serves both over TCP to any number of subscribers.
package gateway

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"sync"
	"time"

	"trading_go/internal/domain"
)

// defaultBasePrice seeds symbols with no historical data and no configured base.
const defaultBasePrice = 100.0

// priceFloor keeps the walk strictly positive.
const priceFloor = 0.01

// Feed generates the per-symbol random walks. Price and sentiment evolve
// independently; the two generation loops share this state under one mutex.
type Feed struct {
	mu         sync.Mutex
	symbols    []string
	prices     map[string]float64
	sentiments map[string]int
	stepPct    float64
	rng        *rand.Rand
}

// NewFeed creates a feed for the given symbols. Starting prices come from
// basePrices where present, otherwise a fixed default; sentiment starts
// neutral at 50.
func NewFeed(symbols []string, basePrices map[string]float64, stepPct float64, seed int64) *Feed {
	f := &Feed{
		symbols:    append([]string(nil), symbols...),
		prices:     make(map[string]float64, len(symbols)),
		sentiments: make(map[string]int, len(symbols)),
		stepPct:    stepPct,
		rng:        rand.New(rand.NewSource(seed)),
	}
	for _, sym := range symbols {
		price := basePrices[sym]
		if price <= 0 {
			price = defaultBasePrice
		}
		f.prices[sym] = price
		f.sentiments[sym] = 50
	}
	return f
}

// SeedFromCSV overwrites starting prices with the last historical close per
// symbol. Rows: timestamp,symbol,price with a header line. A missing file is
// not an error; the feed falls back to base prices.
func (f *Feed) SeedFromCSV(path string) error {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("feed seed: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("feed seed: parse %s: %w", path, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for i, row := range records {
		if i == 0 || len(row) < 3 {
			continue // header or short row
		}
		sym := row[1]
		if _, tracked := f.prices[sym]; !tracked {
			continue
		}
		price, err := strconv.ParseFloat(row[2], 64)
		if err != nil || price <= 0 {
			continue
		}
		f.prices[sym] = price // later rows win
	}
	return nil
}

// Symbols returns the tracked symbol set.
func (f *Feed) Symbols() []string {
	return append([]string(nil), f.symbols...)
}

// NextPrice advances the bounded random walk for symbol and returns the tick:
// next = prev * (1 + U(-step, +step)), clamped to a positive floor.
func (f *Feed) NextPrice(symbol string) domain.PriceTick {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev := f.prices[symbol]
	pct := (f.rng.Float64()*2 - 1) * f.stepPct
	next := prev * (1 + pct)
	if next < priceFloor {
		next = priceFloor
	}
	f.prices[symbol] = next

	return domain.PriceTick{Ts: time.Now().UnixMilli(), Symbol: symbol, Price: next}
}

// NextSentiment nudges the symbol's score by up to ±10 and clamps to [0, 100].
func (f *Feed) NextSentiment(symbol string) domain.SentimentTick {
	f.mu.Lock()
	defer f.mu.Unlock()

	score := f.sentiments[symbol] + f.rng.Intn(21) - 10
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	f.sentiments[symbol] = score

	return domain.SentimentTick{Ts: time.Now().UnixMilli(), Symbol: symbol, Score: score}
}
