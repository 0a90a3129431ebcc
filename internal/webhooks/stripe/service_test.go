package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/koepon-app/koepon-backend/pkg/errors"
	"github.com/koepon-app/koepon-backend/pkg/logger"
)

type fakeBookkeeper struct {
	succeeded []string
	failed    map[string]string
	err       error
}

func (f *fakeBookkeeper) MarkSucceeded(_ context.Context, intentID string) error {
	if f.err != nil {
		return f.err
	}
	f.succeeded = append(f.succeeded, intentID)
	return nil
}

func (f *fakeBookkeeper) MarkFailed(_ context.Context, intentID string, reason string) error {
	if f.err != nil {
		return f.err
	}
	if f.failed == nil {
		f.failed = map[string]string{}
	}
	f.failed[intentID] = reason
	return nil
}

func newTestService(t *testing.T, payments paymentBookkeeper) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Payments: payments,
		Logger:   logger.New(logger.Options{ServiceName: "webhook-test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func paymentIntentEvent(t *testing.T, eventType stripe.EventType, intent map[string]any) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(intent)
	if err != nil {
		t.Fatalf("marshal intent: %v", err)
	}
	return &stripe.Event{
		ID:   "evt_test",
		Type: eventType,
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestHandleEventPaymentSucceeded(t *testing.T) {
	payments := &fakeBookkeeper{}
	svc := newTestService(t, payments)

	event := paymentIntentEvent(t, stripe.EventTypePaymentIntentSucceeded, map[string]any{"id": "pi_123"})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(payments.succeeded) != 1 || payments.succeeded[0] != "pi_123" {
		t.Fatalf("expected pi_123 marked succeeded, got %v", payments.succeeded)
	}
}

func TestHandleEventPaymentFailedRecordsReason(t *testing.T) {
	payments := &fakeBookkeeper{}
	svc := newTestService(t, payments)

	event := paymentIntentEvent(t, stripe.EventTypePaymentIntentPaymentFailed, map[string]any{
		"id":                 "pi_456",
		"last_payment_error": map[string]any{"code": "card_declined"},
	})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if payments.failed["pi_456"] != "card_declined" {
		t.Fatalf("expected failure reason card_declined, got %v", payments.failed)
	}
}

func TestHandleEventUnknownTypeIsIgnored(t *testing.T) {
	payments := &fakeBookkeeper{}
	svc := newTestService(t, payments)

	event := paymentIntentEvent(t, stripe.EventTypeChargeRefunded, map[string]any{"id": "ch_1"})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unknown events must be acknowledged: %v", err)
	}
	if len(payments.succeeded) != 0 && len(payments.failed) != 0 {
		t.Fatal("unknown events must not touch payment records")
	}
}

func TestHandleEventMissingIntentID(t *testing.T) {
	svc := newTestService(t, &fakeBookkeeper{})

	event := paymentIntentEvent(t, stripe.EventTypePaymentIntentSucceeded, map[string]any{})
	err := svc.HandleEvent(context.Background(), event)
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing intent id, got %v", err)
	}
}

func TestHandleEventBookkeeperFailurePropagates(t *testing.T) {
	svc := newTestService(t, &fakeBookkeeper{err: errors.New("db down")})

	event := paymentIntentEvent(t, stripe.EventTypePaymentIntentSucceeded, map[string]any{"id": "pi_err"})
	err := svc.HandleEvent(context.Background(), event)
	if !pkgerrors.Is(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

type fakeIdempotencyStore struct {
	seen map[string]bool
}

func (f *fakeIdempotencyStore) Get(_ context.Context, _ string) (string, error) { return "", nil }

func (f *fakeIdempotencyStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func (f *fakeIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "koepon:idempotency:" + scope + ":" + id
}

func (f *fakeIdempotencyStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.seen, key)
	}
	return nil
}

func TestIdempotencyGuardDedupes(t *testing.T) {
	guard, err := NewIdempotencyGuard(&fakeIdempotencyStore{}, time.Hour, "stripe")
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	ctx := context.Background()

	duplicate, err := guard.CheckAndMark(ctx, "evt_1")
	if err != nil {
		t.Fatalf("first check: %v", err)
	}
	if duplicate {
		t.Fatal("first delivery must not read as duplicate")
	}

	duplicate, err = guard.CheckAndMark(ctx, "evt_1")
	if err != nil {
		t.Fatalf("second check: %v", err)
	}
	if !duplicate {
		t.Fatal("second delivery must read as duplicate")
	}

	if err := guard.Delete(ctx, "evt_1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	duplicate, err = guard.CheckAndMark(ctx, "evt_1")
	if err != nil {
		t.Fatalf("third check: %v", err)
	}
	if duplicate {
		t.Fatal("a cleared event id must be accepted again")
	}
}
