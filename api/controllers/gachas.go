package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/koepon-app/koepon-backend/api/responses"
	"github.com/koepon-app/koepon-backend/api/validators"
	gachasvc "github.com/koepon-app/koepon-backend/internal/gacha"
	paymentsvc "github.com/koepon-app/koepon-backend/internal/payments"
	"github.com/koepon-app/koepon-backend/pkg/db/models"
	"github.com/koepon-app/koepon-backend/pkg/enums"
	pkgerrors "github.com/koepon-app/koepon-backend/pkg/errors"
	"github.com/koepon-app/koepon-backend/pkg/logger"
)

const maxHistoryLimit = 100

type gachaItemView struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Rarity      enums.Rarity    `json:"rarity"`
	Probability decimal.Decimal `json:"probability"`
}

type gachaView struct {
	ID          uuid.UUID       `json:"id"`
	VTuberID    uuid.UUID       `json:"vtuber_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Active      bool            `json:"active"`
	StartsAt    *time.Time      `json:"starts_at,omitempty"`
	EndsAt      *time.Time      `json:"ends_at,omitempty"`
	Items       []gachaItemView `json:"items,omitempty"`
}

func gachaViewFromModel(g *models.Gacha, includeItems bool) gachaView {
	view := gachaView{
		ID:          g.ID,
		VTuberID:    g.VTuberID,
		Name:        g.Name,
		Description: g.Description,
		Active:      g.Active,
		StartsAt:    g.StartsAt,
		EndsAt:      g.EndsAt,
	}
	if includeItems {
		view.Items = make([]gachaItemView, 0, len(g.Items))
		for _, item := range g.Items {
			view.Items = append(view.Items, gachaItemView{
				ID:          item.ID,
				Name:        item.Name,
				Rarity:      item.Rarity,
				Probability: item.Probability,
			})
		}
	}
	return view
}

// ListGachas returns the active gacha catalog.
func ListGachas(svc gachasvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gacha service unavailable"))
			return
		}

		gachas, err := svc.ListGachas(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]gachaView, 0, len(gachas))
		for i := range gachas {
			views = append(views, gachaViewFromModel(&gachas[i], false))
		}
		responses.WriteSuccess(w, views)
	}
}

// GetGacha returns one gacha with its item pool and drop rates.
func GetGacha(svc gachasvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gacha service unavailable"))
			return
		}

		gachaID, err := pathUUID(r, "gachaId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		gacha, err := svc.GetGacha(r.Context(), gachaID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, gachaViewFromModel(gacha, true))
	}
}

type createDrawPaymentRequest struct {
	DrawCount int `json:"draw_count" validate:"required"`
}

// CreateDrawPayment opens a Stripe PaymentIntent for a pending draw.
func CreateDrawPayment(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		gachaID, err := pathUUID(r, "gachaId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createDrawPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateIntent(r.Context(), paymentsvc.CreateIntentInput{
			UserID:    userID,
			GachaID:   gachaID,
			DrawCount: payload.DrawCount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

type executeDrawRequest struct {
	DrawCount       int    `json:"draw_count" validate:"required"`
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
}

// ExecuteDraw performs a paid draw against a confirmed payment.
func ExecuteDraw(svc gachasvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gacha service unavailable"))
			return
		}

		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		gachaID, err := pathUUID(r, "gachaId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload executeDrawRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := svc.ExecuteDraw(r.Context(), gachasvc.ExecuteDrawInput{
			UserID:          userID,
			GachaID:         gachaID,
			DrawCount:       payload.DrawCount,
			PaymentIntentID: payload.PaymentIntentID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, outcome)
	}
}

// ListDraws returns the caller's draw history, newest first.
func ListDraws(svc gachasvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gacha service unavailable"))
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

		outcomes, err := svc.DrawHistory(r.Context(), userID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, outcomes)
	}
}

func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid id").WithDetails(map[string]any{"param": param})
	}
	return id, nil
}
