package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/koepon-app/koepon-backend/api/middleware"
	gachasvc "github.com/koepon-app/koepon-backend/internal/gacha"
	paymentsvc "github.com/koepon-app/koepon-backend/internal/payments"
	"github.com/koepon-app/koepon-backend/pkg/db/models"
	"github.com/koepon-app/koepon-backend/pkg/enums"
	pkgerrors "github.com/koepon-app/koepon-backend/pkg/errors"
	"github.com/koepon-app/koepon-backend/pkg/logger"
	"github.com/koepon-app/koepon-backend/pkg/types"
)

type stubGachaService struct {
	executeCalled bool
	executeInput  gachasvc.ExecuteDrawInput
	executeErr    error
	outcome       *gachasvc.DrawOutcome

	historyLimit int
	history      []gachasvc.DrawOutcome
}

func (s *stubGachaService) ExecuteDraw(_ context.Context, input gachasvc.ExecuteDrawInput) (*gachasvc.DrawOutcome, error) {
	s.executeCalled = true
	s.executeInput = input
	if s.executeErr != nil {
		return nil, s.executeErr
	}
	return s.outcome, nil
}

func (s *stubGachaService) ListGachas(context.Context) ([]models.Gacha, error) {
	return []models.Gacha{}, nil
}

func (s *stubGachaService) GetGacha(context.Context, uuid.UUID) (*models.Gacha, error) {
	panic("unimplemented")
}

func (s *stubGachaService) DrawHistory(_ context.Context, _ uuid.UUID, limit int) ([]gachasvc.DrawOutcome, error) {
	s.historyLimit = limit
	return s.history, nil
}

func (s *stubGachaService) Stats(context.Context) (*gachasvc.Stats, error) {
	panic("unimplemented")
}

type stubDrawPaymentService struct {
	createCalled bool
	createInput  paymentsvc.CreateIntentInput
	result       *paymentsvc.CreateIntentResult
	err          error
}

func (s *stubDrawPaymentService) CreateIntent(_ context.Context, input paymentsvc.CreateIntentInput) (*paymentsvc.CreateIntentResult, error) {
	s.createCalled = true
	s.createInput = input
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubDrawPaymentService) Confirm(context.Context, string) bool { panic("unimplemented") }

func (s *stubDrawPaymentService) MarkSucceeded(context.Context, string) error {
	panic("unimplemented")
}

func (s *stubDrawPaymentService) MarkFailed(context.Context, string, string) error {
	panic("unimplemented")
}

func (s *stubDrawPaymentService) GetRecord(context.Context, string) (*models.PaymentRecord, error) {
	panic("unimplemented")
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

func drawRequest(t *testing.T, userID, gachaID uuid.UUID, body any) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/gachas/"+gachaID.String()+"/draw", &buf)
	req.Header.Set("Content-Type", "application/json")

	ctx := req.Context()
	if userID != uuid.Nil {
		ctx = middleware.WithUserID(ctx, userID.String())
	}
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("gachaId", gachaID.String())
	ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)

	return req.WithContext(ctx)
}

func TestExecuteDraw(t *testing.T) {
	userID := uuid.New()
	gachaID := uuid.New()

	t.Run("missing user", func(t *testing.T) {
		svc := &stubGachaService{}
		handler := ExecuteDraw(svc, testLogger())

		req := drawRequest(t, uuid.Nil, gachaID, map[string]any{
			"draw_count":        1,
			"payment_intent_id": "pi_123",
		})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		if svc.executeCalled {
			t.Fatal("service should not be called without a user")
		}
	})

	t.Run("invalid gacha id", func(t *testing.T) {
		svc := &stubGachaService{}
		handler := ExecuteDraw(svc, testLogger())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/gachas/not-a-uuid/draw", bytes.NewBufferString(`{"draw_count":1,"payment_intent_id":"pi_123"}`))
		ctx := middleware.WithUserID(req.Context(), userID.String())
		routeCtx := chi.NewRouteContext()
		routeCtx.URLParams.Add("gachaId", "not-a-uuid")
		ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req.WithContext(ctx))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if svc.executeCalled {
			t.Fatal("service should not be called for a bad id")
		}
	})

	t.Run("missing payment intent", func(t *testing.T) {
		svc := &stubGachaService{}
		handler := ExecuteDraw(svc, testLogger())

		req := drawRequest(t, userID, gachaID, map[string]any{"draw_count": 10})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
		}
		if svc.executeCalled {
			t.Fatal("service should not be called for an invalid body")
		}
	})

	t.Run("payment not confirmed", func(t *testing.T) {
		svc := &stubGachaService{
			executeErr: pkgerrors.New(pkgerrors.CodePaymentNotConfirmed, "payment pi_123 not confirmed"),
		}
		handler := ExecuteDraw(svc, testLogger())

		req := drawRequest(t, userID, gachaID, map[string]any{
			"draw_count":        1,
			"payment_intent_id": "pi_123",
		})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusPaymentRequired {
			t.Fatalf("expected 402, got %d (%s)", rec.Code, rec.Body.String())
		}

		var envelope types.ErrorEnvelope
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("decode error envelope: %v", err)
		}
		if envelope.Error.Code != string(pkgerrors.CodePaymentNotConfirmed) {
			t.Fatalf("expected PAYMENT_NOT_CONFIRMED, got %s", envelope.Error.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		outcome := &gachasvc.DrawOutcome{
			DrawID:    uuid.New(),
			GachaID:   gachaID,
			DrawCount: 10,
			Items: []gachasvc.DrawnItem{
				{ItemID: uuid.New(), Name: "Signed Cheki", Rarity: enums.RarityLegendary, Position: 1},
			},
			MedalsEarned:    100,
			PaymentIntentID: "pi_123",
			AmountYen:       3000,
			CreatedAt:       time.Now().UTC(),
		}
		svc := &stubGachaService{outcome: outcome}
		handler := ExecuteDraw(svc, testLogger())

		req := drawRequest(t, userID, gachaID, map[string]any{
			"draw_count":        10,
			"payment_intent_id": "pi_123",
		})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
		}
		if !svc.executeCalled {
			t.Fatal("expected service to be called")
		}
		if svc.executeInput.UserID != userID || svc.executeInput.GachaID != gachaID {
			t.Fatalf("unexpected input: %+v", svc.executeInput)
		}
		if svc.executeInput.DrawCount != 10 || svc.executeInput.PaymentIntentID != "pi_123" {
			t.Fatalf("unexpected input: %+v", svc.executeInput)
		}

		var envelope struct {
			Data gachasvc.DrawOutcome `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
		if envelope.Data.DrawID != outcome.DrawID {
			t.Fatalf("expected draw %s, got %s", outcome.DrawID, envelope.Data.DrawID)
		}
		if envelope.Data.MedalsEarned != 100 {
			t.Fatalf("expected 100 medals, got %d", envelope.Data.MedalsEarned)
		}
		if len(envelope.Data.Items) != 1 || envelope.Data.Items[0].Position != 1 {
			t.Fatalf("unexpected items: %+v", envelope.Data.Items)
		}
	})
}

func TestCreateDrawPayment(t *testing.T) {
	userID := uuid.New()
	gachaID := uuid.New()

	t.Run("missing user", func(t *testing.T) {
		svc := &stubDrawPaymentService{}
		handler := CreateDrawPayment(svc, testLogger())

		req := drawRequest(t, uuid.Nil, gachaID, map[string]any{"draw_count": 1})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		if svc.createCalled {
			t.Fatal("service should not be called without a user")
		}
	})

	t.Run("success", func(t *testing.T) {
		svc := &stubDrawPaymentService{
			result: &paymentsvc.CreateIntentResult{
				PaymentIntentID: "pi_456",
				ClientSecret:    "pi_456_secret",
				AmountYen:       3000,
				Currency:        "jpy",
				DrawCount:       10,
			},
		}
		handler := CreateDrawPayment(svc, testLogger())

		req := drawRequest(t, userID, gachaID, map[string]any{"draw_count": 10})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
		}
		if !svc.createCalled {
			t.Fatal("expected service to be called")
		}
		if svc.createInput.UserID != userID || svc.createInput.GachaID != gachaID || svc.createInput.DrawCount != 10 {
			t.Fatalf("unexpected input: %+v", svc.createInput)
		}

		var envelope struct {
			Data paymentsvc.CreateIntentResult `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
		if envelope.Data.PaymentIntentID != "pi_456" {
			t.Fatalf("unexpected intent id %s", envelope.Data.PaymentIntentID)
		}
	})
}

func TestListDraws(t *testing.T) {
	userID := uuid.New()

	historyRequest := func(query string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/draws"+query, nil)
		return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	}

	t.Run("default limit", func(t *testing.T) {
		svc := &stubGachaService{history: []gachasvc.DrawOutcome{}}
		handler := ListDraws(svc, testLogger())

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, historyRequest(""))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
		}
		if svc.historyLimit != 20 {
			t.Fatalf("expected default limit 20, got %d", svc.historyLimit)
		}
	})

	t.Run("explicit limit", func(t *testing.T) {
		svc := &stubGachaService{history: []gachasvc.DrawOutcome{}}
		handler := ListDraws(svc, testLogger())

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, historyRequest("?limit=5"))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if svc.historyLimit != 5 {
			t.Fatalf("expected limit 5, got %d", svc.historyLimit)
		}
	})

	t.Run("limit above cap rejected", func(t *testing.T) {
		svc := &stubGachaService{}
		handler := ListDraws(svc, testLogger())

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, historyRequest("?limit=500"))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
		}
	})
}
