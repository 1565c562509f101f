package http_api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mnee-gate/gatekeeper/internal/models"
	"github.com/mnee-gate/gatekeeper/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeGatekeeper struct {
	payResult *models.PaymentResult
	payErr    error
	gotReq    *models.PaymentRequest

	sweepResult *models.SweepResult
	sweepErr    error
	sweepRuns   int
}

func (g *fakeGatekeeper) VerifyPayment(ctx context.Context, req *models.PaymentRequest) (*models.PaymentResult, error) {
	g.gotReq = req
	if g.payErr != nil {
		return nil, g.payErr
	}
	return g.payResult, nil
}

func (g *fakeGatekeeper) RunExpirySweep(ctx context.Context) (*models.SweepResult, error) {
	g.sweepRuns++
	if g.sweepErr != nil {
		return nil, g.sweepErr
	}
	return g.sweepResult, nil
}

type dispatched struct {
	chatID int64
	userID int64
	text   string
}

type fakeDispatcher struct {
	messages  []dispatched
	callbacks []string
	err       error
}

func (d *fakeDispatcher) HandleMessage(ctx context.Context, chatID, userID int64, text string) error {
	d.messages = append(d.messages, dispatched{chatID: chatID, userID: userID, text: text})
	return d.err
}

func (d *fakeDispatcher) HandleCallback(ctx context.Context, callbackID string, chatID int64, data string) error {
	d.callbacks = append(d.callbacks, data)
	return d.err
}

type fakeRepo struct {
	channel *models.Channel
	plans   []*models.SubscriptionPlan
}

func (r *fakeRepo) GetOrCreateUser(ctx context.Context, telegramID, walletAddress string) (*models.User, error) {
	return nil, errors.New("not implemented")
}

func (r *fakeRepo) GetPlanWithChannel(ctx context.Context, planID string) (*models.SubscriptionPlan, *models.Channel, error) {
	return nil, nil, errors.New("not implemented")
}

func (r *fakeRepo) FindChannel(ctx context.Context, id string) (*models.Channel, error) {
	if r.channel == nil || (r.channel.ID != id && r.channel.ChannelID != id) {
		return nil, models.ErrChannelNotFound
	}
	return r.channel, nil
}

func (r *fakeRepo) FindChannelByAdmin(ctx context.Context, id, adminTelegramID string) (*models.Channel, error) {
	return nil, models.ErrChannelNotFound
}

func (r *fakeRepo) GetChannelsByAdmin(ctx context.Context, adminTelegramID string) ([]*models.Channel, error) {
	return nil, nil
}

func (r *fakeRepo) ChannelExists(ctx context.Context, channelID string) (bool, error) {
	return false, nil
}

func (r *fakeRepo) CreateChannel(ctx context.Context, channel *models.Channel) error { return nil }

func (r *fakeRepo) CreatePlan(ctx context.Context, plan *models.SubscriptionPlan) error { return nil }

func (r *fakeRepo) GetActivePlans(ctx context.Context, channelID string) ([]*models.SubscriptionPlan, error) {
	return r.plans, nil
}

func (r *fakeRepo) GetTransactionByHash(ctx context.Context, txHash string) (*models.Transaction, error) {
	return nil, nil
}

func (r *fakeRepo) CreateSubscription(ctx context.Context, sub *models.Subscription, tx *models.Transaction) error {
	return errors.New("not implemented")
}

func (r *fakeRepo) GetExpiredSubscriptions(ctx context.Context, now time.Time) ([]*models.Subscription, error) {
	return nil, nil
}

func (r *fakeRepo) ExpireSubscription(ctx context.Context, subscriptionID string) error {
	return nil
}

func newTestServer(gk *fakeGatekeeper, disp *fakeDispatcher, repo *fakeRepo, cronSecret string) *HTTPServer {
	return NewHTTPServer(gk, disp, repo, 0, cronSecret, logger.Nop())
}

func doJSON(s *HTTPServer, method, path string, body string, header http.Header) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestVerifyPayment_Success(t *testing.T) {
	expiry := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	gk := &fakeGatekeeper{payResult: &models.PaymentResult{
		InviteLink:     "https://t.me/+abcdef",
		SubscriptionID: "sub-1",
		ExpiryDate:     &expiry,
	}}
	s := newTestServer(gk, &fakeDispatcher{}, &fakeRepo{}, "")

	body := `{"txHash":"0xfeed","telegramId":"42","planId":"plan-1","channelId":"chan-1"}`
	w := doJSON(s, http.MethodPost, "/api/v1/payment/verify", body, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if resp["success"] != true || resp["inviteLink"] != "https://t.me/+abcdef" {
		t.Fatalf("unexpected response: %v", resp)
	}
	if gk.gotReq == nil || gk.gotReq.TxHash != "0xfeed" || gk.gotReq.TelegramID != "42" {
		t.Fatalf("unexpected request passed through: %+v", gk.gotReq)
	}
}

func TestVerifyPayment_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"missing fields", models.ErrMissingFields, http.StatusBadRequest, "Missing required fields"},
		{"plan not found", models.ErrPlanNotFound, http.StatusNotFound, "Plan not found"},
		{"channel not found", models.ErrChannelNotFound, http.StatusNotFound, "Channel not found"},
		{"already processed", models.ErrAlreadyProcessed, http.StatusBadRequest, "Transaction already processed"},
		{
			"tx not found",
			models.NewVerificationError(models.TxNotFound, "transaction 0xfeed not found"),
			http.StatusBadRequest, "Transaction not found or failed",
		},
		{
			"no matching transfer",
			models.NewVerificationError(models.NoMatchingTransfer, "no transfer"),
			http.StatusBadRequest, "No valid MNEE transfer found to channel wallet",
		},
		{
			"insufficient amount",
			models.NewVerificationError(models.InsufficientAmount, "too low"),
			http.StatusBadRequest, "Insufficient payment amount",
		},
		{"internal", errors.New("db down"), http.StatusInternalServerError, "Payment verification failed"},
	}

	body := `{"txHash":"0xfeed","telegramId":"42","planId":"plan-1","channelId":"chan-1"}`
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&fakeGatekeeper{payErr: tt.err}, &fakeDispatcher{}, &fakeRepo{}, "")
			w := doJSON(s, http.MethodPost, "/api/v1/payment/verify", body, nil)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), tt.wantError) {
				t.Fatalf("expected error %q, got %s", tt.wantError, w.Body.String())
			}
		})
	}
}

func TestVerifyPayment_MalformedBody(t *testing.T) {
	s := newTestServer(&fakeGatekeeper{}, &fakeDispatcher{}, &fakeRepo{}, "")
	w := doJSON(s, http.MethodPost, "/api/v1/payment/verify", "{not json", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetChannel(t *testing.T) {
	repo := &fakeRepo{
		channel: &models.Channel{ID: "chan-rec-1", ChannelID: "-100123", ChannelName: "Alpha"},
		plans:   []*models.SubscriptionPlan{{ID: "plan-1", Name: "Monthly", Price: 10}},
	}
	s := newTestServer(&fakeGatekeeper{}, &fakeDispatcher{}, repo, "")

	w := doJSON(s, http.MethodGet, "/api/v1/channels/chan-rec-1", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp ChannelResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if resp.Channel == nil || resp.Channel.ChannelName != "Alpha" {
		t.Fatalf("unexpected channel: %+v", resp.Channel)
	}
	if len(resp.Plans) != 1 || resp.Plans[0].Name != "Monthly" {
		t.Fatalf("unexpected plans: %+v", resp.Plans)
	}
}

func TestGetChannel_NotFound(t *testing.T) {
	s := newTestServer(&fakeGatekeeper{}, &fakeDispatcher{}, &fakeRepo{}, "")
	w := doJSON(s, http.MethodGet, "/api/v1/channels/missing", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestWebhook_DispatchesMessage(t *testing.T) {
	disp := &fakeDispatcher{}
	s := newTestServer(&fakeGatekeeper{}, disp, &fakeRepo{}, "")

	body := `{"update_id":1,"message":{"message_id":5,"chat":{"id":42},"from":{"id":42},"text":"/admin"}}`
	w := doJSON(s, http.MethodPost, "/api/v1/bot/webhook", body, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(disp.messages) != 1 || disp.messages[0].text != "/admin" || disp.messages[0].chatID != 42 {
		t.Fatalf("unexpected dispatch: %+v", disp.messages)
	}
}

func TestWebhook_DispatchesCallback(t *testing.T) {
	disp := &fakeDispatcher{}
	s := newTestServer(&fakeGatekeeper{}, disp, &fakeRepo{}, "")

	body := `{"update_id":2,"callback_query":{"id":"cb-1","from":{"id":42},"chat_instance":"ci","data":"select_channel_chan-rec-1","message":{"message_id":5,"chat":{"id":42},"date":1}}}`
	w := doJSON(s, http.MethodPost, "/api/v1/bot/webhook", body, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(disp.callbacks) != 1 || disp.callbacks[0] != "select_channel_chan-rec-1" {
		t.Fatalf("unexpected callbacks: %v", disp.callbacks)
	}
}

func TestWebhook_AlwaysAcks(t *testing.T) {
	tests := []struct {
		name string
		disp *fakeDispatcher
		body string
	}{
		{"malformed payload", &fakeDispatcher{}, "{not json"},
		{"empty update", &fakeDispatcher{}, `{"update_id":3}`},
		{
			"dispatcher failure",
			&fakeDispatcher{err: errors.New("store down")},
			`{"update_id":4,"message":{"message_id":5,"chat":{"id":42},"from":{"id":42},"text":"/admin"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&fakeGatekeeper{}, tt.disp, &fakeRepo{}, "")
			w := doJSON(s, http.MethodPost, "/api/v1/bot/webhook", tt.body, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("webhook must always ack with 200, got %d", w.Code)
			}
			if !strings.Contains(w.Body.String(), `"ok":true`) {
				t.Fatalf("unexpected body: %s", w.Body.String())
			}
		})
	}
}

func TestCheckExpiry_RequiresBearerToken(t *testing.T) {
	gk := &fakeGatekeeper{sweepResult: &models.SweepResult{}}
	s := newTestServer(gk, &fakeDispatcher{}, &fakeRepo{}, "s3cret")

	w := doJSON(s, http.MethodGet, "/api/v1/cron/check-expiry", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	header := http.Header{"Authorization": []string{"Bearer wrong"}}
	w = doJSON(s, http.MethodGet, "/api/v1/cron/check-expiry", "", header)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", w.Code)
	}
	if gk.sweepRuns != 0 {
		t.Fatal("sweep must not run for unauthorized requests")
	}

	header = http.Header{"Authorization": []string{"Bearer s3cret"}}
	w = doJSON(s, http.MethodGet, "/api/v1/cron/check-expiry", "", header)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", w.Code)
	}
	if gk.sweepRuns != 1 {
		t.Fatalf("expected one sweep run, got %d", gk.sweepRuns)
	}
}

func TestCheckExpiry_GuardDisabledWithoutSecret(t *testing.T) {
	gk := &fakeGatekeeper{sweepResult: &models.SweepResult{}}
	s := newTestServer(gk, &fakeDispatcher{}, &fakeRepo{}, "")

	w := doJSON(s, http.MethodGet, "/api/v1/cron/check-expiry", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "No expired subscriptions") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestCheckExpiry_ReportsSweepSummary(t *testing.T) {
	gk := &fakeGatekeeper{sweepResult: &models.SweepResult{
		Processed: 3, Removed: 2, Failed: 1,
		Errors: []string{"failed to remove user 42"},
	}}
	s := newTestServer(gk, &fakeDispatcher{}, &fakeRepo{}, "")

	w := doJSON(s, http.MethodPost, "/api/v1/cron/check-expiry", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if resp["message"] != "Expiry check completed" {
		t.Fatalf("unexpected message: %v", resp["message"])
	}
	if resp["processed"] != float64(3) || resp["removed"] != float64(2) || resp["failed"] != float64(1) {
		t.Fatalf("unexpected summary: %v", resp)
	}
}
