package decision

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/newthinker/meridian/internal/core"
	"github.com/newthinker/meridian/internal/storage/db"
)

var now = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

func decisionAt(id, symbol string, action core.Action, at time.Time) core.ConsensusDecision {
	return core.ConsensusDecision{
		ID:           id,
		Symbol:       symbol,
		Action:       action,
		Confidence:   1,
		BuyCount:     2,
		TotalSignals: 2,
		Sources:      []string{"yahoo"},
		Signals: []core.Signal{
			{Symbol: symbol, Strategy: "sma_crossover", Source: "yahoo", Direction: core.DirectionBuy, Time: at},
			{Symbol: symbol, Strategy: "macd", Source: "yahoo", Direction: core.DirectionBuy, Time: at},
		},
		DecidedAt: at,
	}
}

func stores(t *testing.T) map[string]Store {
	conn, err := db.OpenDSN(db.MemoryDSN(t.Name()))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close(conn) })
	g, err := NewGormStore(conn)
	if err != nil {
		t.Fatalf("NewGormStore: %v", err)
	}
	return map[string]Store{"memory": NewMemoryStore(100), "gorm": g}
}

func TestStore_SaveAndList(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := store.Save(ctx, decisionAt("d1", "AAPL", core.ActionBuy, now)); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			store.Save(ctx, decisionAt("d2", "GOOG", core.ActionSell, now.Add(time.Minute)))

			decisions, err := store.List(ctx, ListFilter{Symbol: "AAPL"})
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(decisions) != 1 {
				t.Fatalf("expected 1 decision, got %d", len(decisions))
			}
			if len(decisions[0].Signals) != 2 {
				t.Errorf("expected contributing signals to round-trip, got %d", len(decisions[0].Signals))
			}

			all, _ := store.List(ctx, ListFilter{})
			if len(all) != 2 || all[0].ID != "d2" {
				t.Errorf("expected newest first, got %+v", all)
			}
		})
	}
}

func TestStore_ListByActionAndTime(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store.Save(ctx, decisionAt("a", "AAPL", core.ActionBuy, now.Add(-2*time.Hour)))
			store.Save(ctx, decisionAt("b", "AAPL", core.ActionHold, now))
			store.Save(ctx, decisionAt("c", "MSFT", core.ActionBuy, now))

			buys, _ := store.List(ctx, ListFilter{Action: core.ActionBuy})
			if len(buys) != 2 {
				t.Errorf("expected 2 buys, got %d", len(buys))
			}

			recent, _ := store.List(ctx, ListFilter{From: now.Add(-time.Hour)})
			if len(recent) != 2 {
				t.Errorf("expected 2 recent, got %d", len(recent))
			}

			n, err := store.Count(ctx, ListFilter{Symbol: "AAPL"})
			if err != nil || n != 2 {
				t.Errorf("expected count 2, got %d (%v)", n, err)
			}

			page, _ := store.List(ctx, ListFilter{Limit: 1, Offset: 1})
			if len(page) != 1 {
				t.Errorf("expected 1 on page, got %d", len(page))
			}
		})
	}
}

func TestStore_GetByID(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store.Save(ctx, decisionAt("abc", "AAPL", core.ActionBuy, now))

			got, err := store.GetByID(ctx, "abc")
			if err != nil {
				t.Fatalf("GetByID failed: %v", err)
			}
			if got.Symbol != "AAPL" {
				t.Errorf("wrong symbol: %s", got.Symbol)
			}

			_, err = store.GetByID(ctx, "missing")
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("expected not found, got %v", err)
			}
		})
	}
}

func TestMemoryStore_MaxSize(t *testing.T) {
	store := NewMemoryStore(2)
	ctx := context.Background()

	store.Save(ctx, decisionAt("1", "A", core.ActionBuy, now))
	store.Save(ctx, decisionAt("2", "B", core.ActionBuy, now))
	store.Save(ctx, decisionAt("3", "C", core.ActionBuy, now))

	decisions, _ := store.List(ctx, ListFilter{})
	if len(decisions) != 2 {
		t.Errorf("expected 2 (max size), got %d", len(decisions))
	}
}
