package gacha

import (
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/koepon-app/koepon-backend/pkg/db/models"
	pkgerrors "github.com/koepon-app/koepon-backend/pkg/errors"
)

// Selector picks awarded items from a gacha pool.
type Selector interface {
	Select(items []models.GachaItem, count int) ([]models.GachaItem, error)
}

// weightScale converts percentage probabilities with three decimal places to
// integer weights (100.000% -> 100000).
var weightScale = decimal.NewFromInt(1000)

type weightedSelector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewWeightedSelector returns a probability-weighted selector. A nil source
// seeds from the clock; tests inject a fixed source for determinism.
func NewWeightedSelector(source rand.Source) Selector {
	if source == nil {
		source = rand.NewSource(time.Now().UnixNano())
	}
	return &weightedSelector{rng: rand.New(source)}
}

// Select draws count items with replacement, each pick weighted by the item's
// probability.
func (s *weightedSelector) Select(items []models.GachaItem, count int) ([]models.GachaItem, error) {
	if count <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "draw count must be positive")
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gacha has no items")
	}

	weights := make([]int64, len(items))
	var total int64
	for i, item := range items {
		weight := item.Probability.Mul(weightScale).IntPart()
		if weight < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item probability must not be negative")
		}
		weights[i] = weight
		total += weight
	}
	if total <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gacha probabilities sum to zero")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	selected := make([]models.GachaItem, 0, count)
	for picked := 0; picked < count; picked++ {
		roll := s.rng.Int63n(total)
		for i, weight := range weights {
			if roll < weight {
				selected = append(selected, items[i])
				break
			}
			roll -= weight
		}
	}
	return selected, nil
}
