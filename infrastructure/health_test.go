package infrastructure

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/vitovidale/video-manager-service/domain/domaintest"
)

type unhealthyQueue struct {
	*domaintest.TaskQueue
}

func (unhealthyQueue) Healthy() error { return errors.New("disconnected") }

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)

	tests := []struct {
		name       string
		handler    *HealthHandler
		wantCode   int
		wantStatus string
	}{
		{"up", &HealthHandler{DB: db, Queue: domaintest.NewTaskQueue()}, http.StatusOK, "UP"},
		{"queue down", &HealthHandler{DB: db, Queue: unhealthyQueue{domaintest.NewTaskQueue()}}, http.StatusInternalServerError, "DOWN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/health", tt.handler.HealthCheck)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			if w.Code != tt.wantCode {
				t.Errorf("Expected %d, got %d", tt.wantCode, w.Code)
			}
			var body map[string]string
			json.Unmarshal(w.Body.Bytes(), &body)
			if body["status"] != tt.wantStatus {
				t.Errorf("Expected status %s, got %v", tt.wantStatus, body)
			}
		})
	}
}
