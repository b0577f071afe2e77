package handlers

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegisterSubscriptionRoutes_RegistersEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/api/v1")
	RegisterSubscriptionRoutes(g, nil, zap.NewNop().Sugar())

	routes := r.Routes()
	contains := func(target string) bool {
		for _, rt := range routes {
			if rt.Method+" "+rt.Path == target {
				return true
			}
		}
		return false
	}

	require.True(t, contains("POST /api/v1/subscription"))
	require.True(t, contains("DELETE /api/v1/subscription"))
	require.True(t, contains("GET /api/v1/subscription/status"))
}

func TestRegisterWebhookRoutes_RegistersEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterWebhookRoutes(r.Group("/"), nil, zap.NewNop().Sugar())

	found := false
	for _, rt := range r.Routes() {
		if rt.Method == "POST" && rt.Path == "/webhook/payment" {
			found = true
		}
	}
	require.True(t, found)
}
