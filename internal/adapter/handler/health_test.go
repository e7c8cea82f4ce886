package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthHandler(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name     string
		checks   map[string]HealthCheck
		wantCode int
		wantJSON string
	}{
		{"no checks", nil, http.StatusOK, `{"status":"healthy"}`},
		{"all ok", map[string]HealthCheck{"redis": ok}, http.StatusOK, `{"status":"healthy","checks":{"redis":"ok"}}`},
		{"failing", map[string]HealthCheck{"redis": down}, http.StatusServiceUnavailable, `{"status":"degraded","checks":{"redis":"connection refused"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(newEcho(), newRequest(http.MethodGet, "/health", ""), NewHealthHandler(tt.checks).Handle)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantJSON, rec.Body.String())
		})
	}
}
