package gacha

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/koepon-app/koepon-backend/pkg/db/models"
	"github.com/koepon-app/koepon-backend/pkg/enums"
	pkgerrors "github.com/koepon-app/koepon-backend/pkg/errors"
)

func poolItem(name string, probability string) models.GachaItem {
	return models.GachaItem{
		ID:          uuid.New(),
		Name:        name,
		Rarity:      enums.RarityCommon,
		Probability: decimal.RequireFromString(probability),
	}
}

func TestSelectReturnsRequestedCount(t *testing.T) {
	selector := NewWeightedSelector(rand.NewSource(1))
	items := []models.GachaItem{
		poolItem("common card", "79.999"),
		poolItem("rare card", "15.0"),
		poolItem("epic card", "4.5"),
		poolItem("legendary card", "0.501"),
	}

	selected, err := selector.Select(items, 10)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(selected) != 10 {
		t.Fatalf("expected 10 items, got %d", len(selected))
	}

	valid := map[uuid.UUID]bool{}
	for _, item := range items {
		valid[item.ID] = true
	}
	for _, item := range selected {
		if !valid[item.ID] {
			t.Fatalf("selected item %s is not part of the pool", item.Name)
		}
	}
}

func TestSelectNeverPicksZeroProbabilityItems(t *testing.T) {
	selector := NewWeightedSelector(rand.NewSource(42))
	winner := poolItem("always", "100.0")
	never := poolItem("never", "0.0")

	selected, err := selector.Select([]models.GachaItem{winner, never}, 50)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	for _, item := range selected {
		if item.ID == never.ID {
			t.Fatal("zero-probability item must never be selected")
		}
	}
}

func TestSelectSingleItemPool(t *testing.T) {
	selector := NewWeightedSelector(rand.NewSource(7))
	only := poolItem("only", "100.0")

	selected, err := selector.Select([]models.GachaItem{only}, 3)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	for _, item := range selected {
		if item.ID != only.ID {
			t.Fatal("single-item pool must always return that item")
		}
	}
}

func TestSelectRejectsBadInput(t *testing.T) {
	selector := NewWeightedSelector(rand.NewSource(1))

	if _, err := selector.Select(nil, 1); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for empty pool, got %v", err)
	}
	if _, err := selector.Select([]models.GachaItem{poolItem("a", "100")}, 0); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for zero count, got %v", err)
	}
	zeroed := []models.GachaItem{poolItem("a", "0"), poolItem("b", "0")}
	if _, err := selector.Select(zeroed, 1); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for zero total weight, got %v", err)
	}
}

func TestSelectRoughlyFollowsWeights(t *testing.T) {
	selector := NewWeightedSelector(rand.NewSource(99))
	heavy := poolItem("heavy", "90.0")
	light := poolItem("light", "10.0")

	counts := map[uuid.UUID]int{}
	selected, err := selector.Select([]models.GachaItem{heavy, light}, 1000)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	for _, item := range selected {
		counts[item.ID]++
	}

	if counts[heavy.ID] <= counts[light.ID] {
		t.Fatalf("expected heavy item to dominate, got heavy=%d light=%d", counts[heavy.ID], counts[light.ID])
	}
	if counts[light.ID] == 0 {
		t.Fatal("light item should still appear over 1000 draws")
	}
}
