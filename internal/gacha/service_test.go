package gacha

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/koepon-app/koepon-backend/internal/medals"
	"github.com/koepon-app/koepon-backend/pkg/db/models"
	"github.com/koepon-app/koepon-backend/pkg/enums"
	pkgerrors "github.com/koepon-app/koepon-backend/pkg/errors"
	"github.com/koepon-app/koepon-backend/pkg/logger"
)

type fakeGachaRepo struct {
	gacha       *models.Gacha
	claimErr    error
	claims      []*models.PaymentUsage
	releases    []string
	drawResults []*models.DrawResult
	createErr   error
	history     []models.DrawResult
	totalDraws  int64
	totalMedals int64
}

func (f *fakeGachaRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeGachaRepo) ListGachas(_ context.Context, _ bool) ([]models.Gacha, error) {
	if f.gacha == nil {
		return nil, nil
	}
	return []models.Gacha{*f.gacha}, nil
}

func (f *fakeGachaRepo) FindGacha(_ context.Context, _ uuid.UUID) (*models.Gacha, error) {
	if f.gacha == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.gacha, nil
}

func (f *fakeGachaRepo) ClaimPayment(_ context.Context, usage *models.PaymentUsage) error {
	if f.claimErr != nil {
		return f.claimErr
	}
	f.claims = append(f.claims, usage)
	return nil
}

func (f *fakeGachaRepo) ReleasePayment(_ context.Context, intentID string) error {
	f.releases = append(f.releases, intentID)
	return nil
}

func (f *fakeGachaRepo) CreateDrawResult(_ context.Context, result *models.DrawResult) error {
	if f.createErr != nil {
		return f.createErr
	}
	result.ID = uuid.New()
	f.drawResults = append(f.drawResults, result)
	return nil
}

func (f *fakeGachaRepo) ListDrawResultsByUser(_ context.Context, _ uuid.UUID, _ int) ([]models.DrawResult, error) {
	return f.history, nil
}

func (f *fakeGachaRepo) CountDraws(_ context.Context) (int64, error) { return f.totalDraws, nil }

func (f *fakeGachaRepo) SumMedalsEarned(_ context.Context) (int64, error) { return f.totalMedals, nil }

type fakePayments struct {
	confirmed    bool
	confirmCalls int
}

func (f *fakePayments) Confirm(_ context.Context, _ string) bool {
	f.confirmCalls++
	return f.confirmed
}

type fakeMedals struct {
	earnCalls []medals.EarnInput
	earnErr   error
}

func (f *fakeMedals) Earn(_ context.Context, input medals.EarnInput) error {
	if f.earnErr != nil {
		return f.earnErr
	}
	f.earnCalls = append(f.earnCalls, input)
	return nil
}

type countingSelector struct {
	calls int
	inner Selector
}

func (c *countingSelector) Select(items []models.GachaItem, count int) ([]models.GachaItem, error) {
	c.calls++
	return c.inner.Select(items, count)
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func testGacha() *models.Gacha {
	gachaID := uuid.New()
	return &models.Gacha{
		ID:       gachaID,
		VTuberID: uuid.New(),
		Name:     "Hoshino Standard",
		Active:   true,
		Items: []models.GachaItem{
			{ID: uuid.New(), GachaID: gachaID, Name: "Photo card", Rarity: enums.RarityCommon, Probability: decimal.RequireFromString("80.0")},
			{ID: uuid.New(), GachaID: gachaID, Name: "Signed card", Rarity: enums.RarityRare, Probability: decimal.RequireFromString("20.0")},
		},
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "gacha-test", Output: io.Discard})
}

func newTestService(t *testing.T, repo Repository, pay paymentConfirmer, medalSvc medalEarner, selector Selector) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:          repo,
		Payments:      pay,
		Medals:        medalSvc,
		Tx:            fakeTxRunner{},
		Selector:      selector,
		Logger:        testLogger(),
		MedalsPerDraw: 10,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestExecuteDrawSuccess(t *testing.T) {
	repo := &fakeGachaRepo{gacha: testGacha()}
	pay := &fakePayments{confirmed: true}
	medalSvc := &fakeMedals{}
	svc := newTestService(t, repo, pay, medalSvc, nil)

	userID := uuid.New()
	outcome, err := svc.ExecuteDraw(context.Background(), ExecuteDrawInput{
		UserID:          userID,
		GachaID:         repo.gacha.ID,
		DrawCount:       10,
		PaymentIntentID: "pi_draw_10",
	})
	if err != nil {
		t.Fatalf("execute draw: %v", err)
	}

	if len(outcome.Items) != 10 {
		t.Fatalf("expected 10 items, got %d", len(outcome.Items))
	}
	for i, item := range outcome.Items {
		if item.Position != i+1 {
			t.Fatalf("expected position %d, got %d", i+1, item.Position)
		}
	}
	if outcome.MedalsEarned != 100 {
		t.Fatalf("expected 100 medals for a ten-pull, got %d", outcome.MedalsEarned)
	}
	if outcome.AmountYen != 1000 {
		t.Fatalf("expected 1000 yen, got %d", outcome.AmountYen)
	}
	if outcome.PaymentIntentID != "pi_draw_10" {
		t.Fatalf("unexpected payment intent id %q", outcome.PaymentIntentID)
	}

	if len(repo.claims) != 1 || repo.claims[0].StripePaymentIntentID != "pi_draw_10" {
		t.Fatalf("expected one claim for pi_draw_10, got %+v", repo.claims)
	}
	if len(repo.drawResults) != 1 {
		t.Fatalf("expected one persisted draw result, got %d", len(repo.drawResults))
	}
	if len(medalSvc.earnCalls) != 1 {
		t.Fatalf("expected one medal credit, got %d", len(medalSvc.earnCalls))
	}
	earn := medalSvc.earnCalls[0]
	if earn.Amount != 100 || earn.Source != enums.MedalSourceGacha || earn.UserID != userID {
		t.Fatalf("unexpected earn input: %+v", earn)
	}
	if earn.VTuberID == nil || *earn.VTuberID != repo.gacha.VTuberID {
		t.Fatalf("expected vtuber-attributed credit, got %+v", earn.VTuberID)
	}
}

func TestExecuteDrawSingleAmount(t *testing.T) {
	repo := &fakeGachaRepo{gacha: testGacha()}
	svc := newTestService(t, repo, &fakePayments{confirmed: true}, &fakeMedals{}, nil)

	outcome, err := svc.ExecuteDraw(context.Background(), ExecuteDrawInput{
		UserID:          uuid.New(),
		GachaID:         repo.gacha.ID,
		DrawCount:       1,
		PaymentIntentID: "pi_draw_1",
	})
	if err != nil {
		t.Fatalf("execute draw: %v", err)
	}
	if outcome.AmountYen != 100 || len(outcome.Items) != 1 || outcome.MedalsEarned != 10 {
		t.Fatalf("unexpected single draw outcome: %+v", outcome)
	}
}

func TestExecuteDrawUnconfirmedPayment(t *testing.T) {
	repo := &fakeGachaRepo{gacha: testGacha()}
	pay := &fakePayments{confirmed: false}
	medalSvc := &fakeMedals{}
	selector := &countingSelector{inner: NewWeightedSelector(nil)}
	svc := newTestService(t, repo, pay, medalSvc, selector)

	_, err := svc.ExecuteDraw(context.Background(), ExecuteDrawInput{
		UserID:          uuid.New(),
		GachaID:         repo.gacha.ID,
		DrawCount:       1,
		PaymentIntentID: "pi_pending",
	})
	if !pkgerrors.Is(err, pkgerrors.CodePaymentNotConfirmed) {
		t.Fatalf("expected PAYMENT_NOT_CONFIRMED, got %v", err)
	}

	if selector.calls != 0 {
		t.Fatal("selector must not run for an unconfirmed payment")
	}
	if len(medalSvc.earnCalls) != 0 {
		t.Fatal("no medals may be credited for an unconfirmed payment")
	}
	if len(repo.drawResults) != 0 {
		t.Fatal("no draw result may be persisted for an unconfirmed payment")
	}
	if len(repo.releases) != 1 || repo.releases[0] != "pi_pending" {
		t.Fatalf("expected the claim to be released, got %v", repo.releases)
	}
}

func TestExecuteDrawPaymentAlreadyUsed(t *testing.T) {
	repo := &fakeGachaRepo{
		gacha:    testGacha(),
		claimErr: errors.New("UNIQUE constraint failed: payment_usages.stripe_payment_intent_id"),
	}
	pay := &fakePayments{confirmed: true}
	medalSvc := &fakeMedals{}
	selector := &countingSelector{inner: NewWeightedSelector(nil)}
	svc := newTestService(t, repo, pay, medalSvc, selector)

	_, err := svc.ExecuteDraw(context.Background(), ExecuteDrawInput{
		UserID:          uuid.New(),
		GachaID:         repo.gacha.ID,
		DrawCount:       1,
		PaymentIntentID: "pi_reused",
	})
	if !pkgerrors.Is(err, pkgerrors.CodePaymentAlreadyUsed) {
		t.Fatalf("expected PAYMENT_ALREADY_USED, got %v", err)
	}

	if pay.confirmCalls != 0 {
		t.Fatal("no provider call should happen when the claim is already taken")
	}
	if selector.calls != 0 || len(medalSvc.earnCalls) != 0 || len(repo.drawResults) != 0 {
		t.Fatal("a reused payment must have zero draw side effects")
	}
	if len(repo.releases) != 0 {
		t.Fatal("a lost claim must not release the winner's claim")
	}
}

func TestExecuteDrawInvalidDrawCount(t *testing.T) {
	repo := &fakeGachaRepo{gacha: testGacha()}
	svc := newTestService(t, repo, &fakePayments{confirmed: true}, &fakeMedals{}, nil)

	for _, count := range []int{0, 3, 5, 100} {
		_, err := svc.ExecuteDraw(context.Background(), ExecuteDrawInput{
			UserID:          uuid.New(),
			GachaID:         repo.gacha.ID,
			DrawCount:       count,
			PaymentIntentID: "pi_x",
		})
		if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
			t.Fatalf("expected validation error for count %d, got %v", count, err)
		}
	}
	if len(repo.claims) != 0 {
		t.Fatal("invalid draw counts must not claim the payment")
	}
}

func TestExecuteDrawInactiveGacha(t *testing.T) {
	gacha := testGacha()
	gacha.Active = false
	repo := &fakeGachaRepo{gacha: gacha}
	svc := newTestService(t, repo, &fakePayments{confirmed: true}, &fakeMedals{}, nil)

	_, err := svc.ExecuteDraw(context.Background(), ExecuteDrawInput{
		UserID:          uuid.New(),
		GachaID:         gacha.ID,
		DrawCount:       1,
		PaymentIntentID: "pi_x",
	})
	if !pkgerrors.Is(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict for inactive gacha, got %v", err)
	}
	if len(repo.claims) != 0 {
		t.Fatal("inactive gacha must not claim the payment")
	}
}

func TestExecuteDrawMedalCreditFailureKeepsResult(t *testing.T) {
	repo := &fakeGachaRepo{gacha: testGacha()}
	medalSvc := &fakeMedals{earnErr: errors.New("redis down")}
	svc := newTestService(t, repo, &fakePayments{confirmed: true}, medalSvc, nil)

	outcome, err := svc.ExecuteDraw(context.Background(), ExecuteDrawInput{
		UserID:          uuid.New(),
		GachaID:         repo.gacha.ID,
		DrawCount:       1,
		PaymentIntentID: "pi_ok",
	})
	if err != nil {
		t.Fatalf("a failed medal credit must not fail the paid draw: %v", err)
	}
	if len(outcome.Items) != 1 {
		t.Fatalf("expected the awarded item to be returned, got %d items", len(outcome.Items))
	}
	if len(repo.drawResults) != 1 {
		t.Fatal("the draw result must stay persisted")
	}
}

func TestDrawOutcomeJSONHasNoSpentField(t *testing.T) {
	repo := &fakeGachaRepo{gacha: testGacha()}
	svc := newTestService(t, repo, &fakePayments{confirmed: true}, &fakeMedals{}, nil)

	outcome, err := svc.ExecuteDraw(context.Background(), ExecuteDrawInput{
		UserID:          uuid.New(),
		GachaID:         repo.gacha.ID,
		DrawCount:       10,
		PaymentIntentID: "pi_json",
	})
	if err != nil {
		t.Fatalf("execute draw: %v", err)
	}

	raw, err := json.Marshal(outcome)
	if err != nil {
		t.Fatalf("marshal outcome: %v", err)
	}
	payload := string(raw)

	if !strings.Contains(payload, `"medals_earned":100`) {
		t.Fatalf("expected medals_earned in payload, got %s", payload)
	}
	for _, forbidden := range []string{"spent", "medals_used", "cost"} {
		if strings.Contains(payload, forbidden) {
			t.Fatalf("draw payload must not mention %q: %s", forbidden, payload)
		}
	}
}

func TestStats(t *testing.T) {
	repo := &fakeGachaRepo{totalDraws: 42, totalMedals: 4200}
	svc := newTestService(t, repo, &fakePayments{}, &fakeMedals{}, nil)

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalDraws != 42 || stats.TotalMedalsEarned != 4200 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
