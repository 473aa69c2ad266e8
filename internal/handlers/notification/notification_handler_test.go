// internal/handlers/notification/notification_handler_test.go
package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"duka-service/internal/cache"
	domain "duka-service/internal/domain/notification"
	"duka-service/internal/domain/order"
	"duka-service/internal/domain/product"
	xerrors "duka-service/internal/pkg/errors"
	"duka-service/internal/repository/memory"
	service "duka-service/internal/service/notification"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubOrderStore struct{}

func (stubOrderStore) FindByID(ctx context.Context, id string) (*order.Order, error) {
	return nil, xerrors.ErrNotFound
}

func (stubOrderStore) RecentByStatus(ctx context.Context, statuses []string, limit int) ([]order.Order, error) {
	return nil, nil
}

type stubProductStore struct{}

func (stubProductStore) OutOfStock(ctx context.Context) ([]product.Product, error) {
	return nil, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *service.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	c := cache.NewTTLCache()
	t.Cleanup(c.Close)

	engine := service.NewEngine(
		memory.NewNotificationStore(),
		stubOrderStore{}, stubProductStore{},
		c, nil, nil, zap.NewNop(),
	)

	h := NewNotificationHandler(engine)
	r := gin.New()
	r.GET("/api/notifications", h.GetNotifications)
	r.POST("/api/notifications", h.CreateNotification)
	r.PUT("/api/notifications", h.UpdateNotification)
	r.DELETE("/api/notifications", h.DeleteNotification)
	return r, engine
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateNotificationValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(r, http.MethodPost, "/api/notifications", `{"title":"no type"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateAndListNotifications(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(r, http.MethodPost, "/api/notifications", `{
		"type": "order_received",
		"title": "New Order",
		"message": "New order: Widget (x2)",
		"referenceId": "O1",
		"referenceType": "order",
		"priority": "high"
	}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(r, http.MethodGet, "/api/notifications?limit=10", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success     bool                  `json:"success"`
		Data        []domain.Notification `json:"data"`
		UnreadCount int                   `json:"unreadCount"`
		TotalCount  int                   `json:"totalCount"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, domain.TypeOrderReceived, resp.Data[0].Type)
	assert.Equal(t, 1, resp.UnreadCount)
	assert.Equal(t, 1, resp.TotalCount)
}

func TestListNotificationsTypeFilter(t *testing.T) {
	r, _ := newTestRouter(t)

	doJSON(r, http.MethodPost, "/api/notifications", `{"type":"order_received","title":"t","message":"m","referenceId":"O1"}`)
	doJSON(r, http.MethodPost, "/api/notifications", `{"type":"out_of_stock","title":"t","message":"m","referenceId":"P1"}`)

	w := doJSON(r, http.MethodGet, "/api/notifications?type=out_of_stock", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []domain.Notification `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, domain.TypeOutOfStock, resp.Data[0].Type)
}

func TestUpdateNotificationReadFlow(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(r, http.MethodPost, "/api/notifications", `{"type":"low_stock","title":"t","message":"m"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Data domain.Notification `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(r, http.MethodPut, "/api/notifications", `{"_id":"`+created.Data.ID+`","isRead":true}`)
	require.Equal(t, http.StatusOK, w.Code)

	var updated struct {
		Data domain.Notification `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.True(t, updated.Data.IsRead)
}

func TestUpdateNotificationUnknownID(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(r, http.MethodPut, "/api/notifications", `{"_id":"missing","isRead":true}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateNotificationMarkAll(t *testing.T) {
	r, _ := newTestRouter(t)

	doJSON(r, http.MethodPost, "/api/notifications", `{"type":"low_stock","title":"a","message":"m"}`)
	doJSON(r, http.MethodPost, "/api/notifications", `{"type":"low_stock","title":"b","message":"m"}`)

	w := doJSON(r, http.MethodPut, "/api/notifications", `{"all":true}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/api/notifications", "")
	var resp struct {
		UnreadCount int `json:"unreadCount"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.UnreadCount)
}

func TestDeleteNotification(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(r, http.MethodPost, "/api/notifications", `{"type":"low_stock","title":"t","message":"m"}`)
	var created struct {
		Data domain.Notification `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(r, http.MethodDelete, "/api/notifications", `{"_id":"`+created.Data.ID+`"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodDelete, "/api/notifications", `{"_id":"`+created.Data.ID+`"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
