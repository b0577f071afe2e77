package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taskbench/backend/internal/app/service/webhook"
	"github.com/taskbench/backend/pkg/logctx"
	"github.com/taskbench/backend/pkg/response"
)

// ApiPaymentWebhook receives processor notifications. Business failures are
// acknowledged with 200 so the processor stops retrying a payload that will
// never apply; only an unparsable body gets 400.
func ApiPaymentWebhook(rec *webhook.Reconciler, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest,
				response.ErrorT[any](response.APIResponseCodeBadRequest, "failed to read body"))
			return
		}

		if err := rec.Handle(c.Request.Context(), raw); err != nil {
			if errors.Is(err, webhook.ErrMalformedPayload) {
				c.JSON(http.StatusBadRequest,
					response.ErrorT[any](response.APIResponseCodeBadRequest, "malformed payload"))
				return
			}
			logctx.FromGin(c, log).Errorw("webhook handling failed", "error", err)
			c.JSON(http.StatusInternalServerError,
				response.ErrorT[any](response.APIResponseCodeError, "internal error"))
			return
		}
		c.JSON(http.StatusOK, response.OKT(map[string]string{"status": "accepted"}))
	}
}

func RegisterWebhookRoutes(r gin.IRouter, rec *webhook.Reconciler, log *zap.SugaredLogger) {
	r.POST("/webhook/payment", ApiPaymentWebhook(rec, log))
}
