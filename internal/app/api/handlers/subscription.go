package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	mw "github.com/taskbench/backend/internal/app/api/middleware"
	subsvc "github.com/taskbench/backend/internal/app/service/subscription"
	"github.com/taskbench/backend/pkg/logctx"
	"github.com/taskbench/backend/pkg/response"
)

type startSubscriptionDTO struct {
	SubscriptionID   string `json:"subscription_id"`
	PaymentReference string `json:"payment_reference"`
	ConfirmationURL  string `json:"confirmation_url,omitempty"`
}

type subscriptionStatusDTO struct {
	IsSubscribed   bool       `json:"is_subscribed"`
	SubscriptionID string     `json:"subscription_id,omitempty"`
	IsActive       bool       `json:"is_active,omitempty"`
	NextPayment    *time.Time `json:"next_payment,omitempty"`
}

// ApiStartSubscription begins or resumes the caller's subscription. A 201
// with a confirmation URL means the user must complete the payment via
// redirect; a 200 without one means an off-session renewal charge was issued.
func ApiStartSubscription(sub *subsvc.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := mw.UserID(c)

		res, err := sub.StartOrResume(c.Request.Context(), userID)
		if err != nil {
			logctx.FromGin(c, log).Errorw("failed to start subscription", "error", err)
			if errors.Is(err, subsvc.ErrPaymentGateway) {
				c.JSON(http.StatusInternalServerError,
					response.ErrorT[any](response.APIResponseCodeError, "payment processor unavailable"))
				return
			}
			c.JSON(http.StatusInternalServerError,
				response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}

		dto := &startSubscriptionDTO{
			SubscriptionID:   res.Subscription.ID,
			PaymentReference: res.PaymentID,
			ConfirmationURL:  res.ConfirmationURL,
		}
		status := http.StatusOK
		if res.ConfirmationURL != "" {
			status = http.StatusCreated
		}
		c.JSON(status, response.OKT(dto))
	}
}

// ApiCancelSubscription turns off auto-renewal. Access is kept until the paid
// period lapses.
func ApiCancelSubscription(sub *subsvc.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := mw.UserID(c)

		err := sub.Cancel(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, subsvc.ErrNoSubscription) {
				c.JSON(http.StatusNotFound,
					response.ErrorT[any](response.APIResponseCodeNotFound, "no subscription to cancel"))
				return
			}
			logctx.FromGin(c, log).Errorw("failed to cancel subscription", "error", err)
			c.JSON(http.StatusInternalServerError,
				response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// ApiSubscriptionStatus reports the caller's paid-access state. Having no
// subscription at all is a normal not-subscribed answer.
func ApiSubscriptionStatus(sub *subsvc.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := mw.UserID(c)

		st, err := sub.GetStatus(c.Request.Context(), userID)
		if err != nil {
			logctx.FromGin(c, log).Errorw("failed to read subscription status", "error", err)
			c.JSON(http.StatusInternalServerError,
				response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}

		dto := &subscriptionStatusDTO{IsSubscribed: st.IsSubscribed}
		if st.Subscription != nil {
			dto.SubscriptionID = st.Subscription.ID
			dto.IsActive = st.Subscription.IsActive
			// Next charge happens only while auto-renewal is on and a saved
			// method exists.
			if st.Subscription.IsActive && st.Subscription.PaymentMethodID != "" {
				dto.NextPayment = st.Subscription.EndDate
			}
		}
		c.JSON(http.StatusOK, response.OKT(dto))
	}
}

func RegisterSubscriptionRoutes(r gin.IRouter, sub *subsvc.Service, log *zap.SugaredLogger) {
	r.POST("/subscription", ApiStartSubscription(sub, log))
	r.DELETE("/subscription", ApiCancelSubscription(sub, log))
	r.GET("/subscription/status", ApiSubscriptionStatus(sub, log))
}
