package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/koepon-app/koepon-backend/api/responses"
	"github.com/koepon-app/koepon-backend/api/validators"
	exchangesvc "github.com/koepon-app/koepon-backend/internal/exchange"
	medalsvc "github.com/koepon-app/koepon-backend/internal/medals"
	"github.com/koepon-app/koepon-backend/pkg/db/models"
	"github.com/koepon-app/koepon-backend/pkg/enums"
	pkgerrors "github.com/koepon-app/koepon-backend/pkg/errors"
	"github.com/koepon-app/koepon-backend/pkg/logger"
)

// GetMedalBalance returns the caller's medal wallet.
func GetMedalBalance(svc medalsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "medal service unavailable"))
			return
		}

		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := svc.GetBalance(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, balance)
	}
}

type exchangeRequest struct {
	ItemID uuid.UUID `json:"item_id" validate:"required"`
}

// ExchangeMedals spends medals on an exchange item.
func ExchangeMedals(svc medalsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "medal service unavailable"))
			return
		}

		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload exchangeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Exchange(r.Context(), userID, payload.ItemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type medalTransactionView struct {
	ID        uuid.UUID                  `json:"id"`
	Type      enums.MedalTransactionType `json:"type"`
	Source    enums.MedalSource          `json:"source,omitempty"`
	Amount    int64                      `json:"amount"`
	VTuberID  *uuid.UUID                 `json:"vtuber_id,omitempty"`
	ItemID    *uuid.UUID                 `json:"item_id,omitempty"`
	CreatedAt time.Time                  `json:"created_at"`
}

// ListMedalTransactions returns the caller's medal ledger, newest first.
func ListMedalTransactions(svc medalsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "medal service unavailable"))
			return
		}

		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, maxHistoryLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txns, err := svc.History(r.Context(), userID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]medalTransactionView, 0, len(txns))
		for _, txn := range txns {
			views = append(views, medalTransactionView{
				ID:        txn.ID,
				Type:      txn.Type,
				Source:    txn.Source,
				Amount:    txn.Amount,
				VTuberID:  txn.VTuberID,
				ItemID:    txn.ItemID,
				CreatedAt: txn.CreatedAt,
			})
		}
		responses.WriteSuccess(w, views)
	}
}

type exchangeItemView struct {
	ID          uuid.UUID  `json:"id"`
	VTuberID    *uuid.UUID `json:"vtuber_id,omitempty"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	CostMedals  int64      `json:"cost_medals"`
	Stock       *int       `json:"stock,omitempty"`
}

func exchangeItemViewFromModel(item *models.ExchangeItem) exchangeItemView {
	return exchangeItemView{
		ID:          item.ID,
		VTuberID:    item.VTuberID,
		Name:        item.Name,
		Description: item.Description,
		CostMedals:  item.CostMedals,
		Stock:       item.Stock,
	}
}

// ListExchangeItems returns the active exchange catalog.
func ListExchangeItems(svc exchangesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "exchange service unavailable"))
			return
		}

		items, err := svc.ListItems(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]exchangeItemView, 0, len(items))
		for i := range items {
			views = append(views, exchangeItemViewFromModel(&items[i]))
		}
		responses.WriteSuccess(w, views)
	}
}
