package exchange

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/koepon-app/koepon-backend/pkg/db/models"
	pkgerrors "github.com/koepon-app/koepon-backend/pkg/errors"
)

// Service exposes the exchange catalog.
type Service interface {
	ListItems(ctx context.Context) ([]models.ExchangeItem, error)
	GetItem(ctx context.Context, id uuid.UUID) (*models.ExchangeItem, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]models.ExchangeRecord, error)
}

type service struct {
	repo Repository
}

// NewService wires the exchange catalog service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("exchange repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListItems(ctx context.Context) ([]models.ExchangeItem, error) {
	return s.repo.ListItems(ctx, true)
}

func (s *service) GetItem(ctx context.Context, id uuid.UUID) (*models.ExchangeItem, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exchange item id required")
	}
	item, err := s.repo.FindItem(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "exchange item not found")
		}
		return nil, err
	}
	return item, nil
}

func (s *service) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.ExchangeRecord, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	return s.repo.ListRecordsByUser(ctx, userID, limit)
}
