package controllers

import (
	"net/http"

	"github.com/koepon-app/koepon-backend/api/responses"
	"github.com/koepon-app/koepon-backend/api/validators"
	gachasvc "github.com/koepon-app/koepon-backend/internal/gacha"
	probabilitysvc "github.com/koepon-app/koepon-backend/internal/probability"
	pkgerrors "github.com/koepon-app/koepon-backend/pkg/errors"
	"github.com/koepon-app/koepon-backend/pkg/logger"
)

// GetProbabilities returns the stored probability set for a gacha.
func GetProbabilities(svc probabilitysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "probability service unavailable"))
			return
		}

		gachaID, err := pathUUID(r, "gachaId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.Get(r.Context(), gachaID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"entries": entries})
	}
}

type putProbabilitiesRequest struct {
	Entries []probabilitysvc.Entry `json:"entries" validate:"required,dive"`
}

type putProbabilitiesResponse struct {
	Entries []probabilitysvc.Entry           `json:"entries"`
	Result  *probabilitysvc.ValidationResult `json:"result"`
}

// PutProbabilities validates and replaces a gacha's probability set. A set
// outside the accepted tolerance is rejected before anything is stored.
func PutProbabilities(svc probabilitysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "probability service unavailable"))
			return
		}

		gachaID, err := pathUUID(r, "gachaId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload putProbabilitiesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Save(r.Context(), gachaID, payload.Entries)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, putProbabilitiesResponse{
			Entries: payload.Entries,
			Result:  result,
		})
	}
}

// AdminStats aggregates draw activity for the dashboard.
func AdminStats(svc gachasvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gacha service unavailable"))
			return
		}

		stats, err := svc.Stats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, stats)
	}
}
