package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	subsvc "github.com/taskbench/backend/internal/app/service/subscription"
	"github.com/taskbench/backend/internal/app/service/webhook"
	"github.com/taskbench/backend/internal/models"
	"github.com/taskbench/backend/internal/platform/payment"
	"github.com/taskbench/backend/internal/repository"
	"github.com/taskbench/backend/pkg/config"
)

type nopGateway struct{}

func (nopGateway) CreatePaymentIntent(context.Context, *payment.CreateIntentRequest) (*payment.PaymentIntent, error) {
	return &payment.PaymentIntent{ID: "pay-1", Status: "pending"}, nil
}

func (nopGateway) CreateOffsessionCharge(context.Context, *payment.OffsessionChargeRequest) (*payment.Charge, error) {
	return &payment.Charge{ID: "pay-2", Status: "pending"}, nil
}

type nopAudit struct{}

func (nopAudit) Save(context.Context, *models.PaymentNotificationLog) {}

func newWebhookRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop().Sugar()
	svc := subsvc.NewService(&config.Config{}, repository.NewMemoryStore(), nopGateway{}, log)
	rec := webhook.NewReconciler(svc, nopAudit{}, log)

	r := gin.New()
	RegisterWebhookRoutes(r.Group("/"), rec, log)
	return r
}

func TestApiPaymentWebhook_MalformedBodyReturns400(t *testing.T) {
	r := newWebhookRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook/payment", strings.NewReader("{not json"))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApiPaymentWebhook_UnknownSubscriptionStillAcked(t *testing.T) {
	r := newWebhookRouter(t)

	body := `{"event":"payment.succeeded","object":{"id":"pay-9","status":"succeeded",` +
		`"metadata":{"subscription_internal_id":"missing","payment_type":"initial"}}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook/payment", strings.NewReader(body))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "accepted")
}
