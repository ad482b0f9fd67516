package handlers_test

import (
	"math"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbmarketing1011/restaunax-backend/internal/handlers/testutil"
	"github.com/rbmarketing1011/restaunax-backend/internal/models"
	"github.com/rbmarketing1011/restaunax-backend/internal/services"
)

func sampleOrder() map[string]any {
	return map[string]any{
		"customer_name":  "Walk-in",
		"customer_email": "Guest@Example.com",
		"type":           "pickup",
		"items": []map[string]any{
			{"name": "Margherita", "quantity": 2, "unit_price_cents": 1150},
			{"name": "Lemonade", "quantity": 1, "unit_price_cents": 350},
		},
	}
}

func createOrder(t *testing.T, env *testutil.Env, token string, body map[string]any) models.Order {
	t.Helper()

	w := env.Request(http.MethodPost, "/api/orders", body, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var order models.Order
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &order)
	return order
}

func TestOrdersRequireAuth(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodGet, "/api/orders", nil, "")
	testutil.RequireError(t, w, http.StatusUnauthorized, "UNAUTHORIZED")

	w = env.Request(http.MethodPost, "/api/orders", sampleOrder(), "not-a-token")
	testutil.RequireError(t, w, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestCreateOrder(t *testing.T) {
	env := testutil.NewEnv(t)
	login := env.SignUp("Tara", "tara@example.com", password)

	order := createOrder(t, env, login.Token, sampleOrder())
	require.NotEmpty(t, order.ID)
	require.Len(t, order.Number, 26)
	require.Equal(t, login.Account.ID, order.AccountID)
	require.Equal(t, models.OrderStatusPending, order.Status)
	require.Equal(t, "guest@example.com", order.CustomerEmail)
	require.Equal(t, int64(2650), order.TotalCents)
	require.Len(t, order.Items, 2)
	require.Equal(t, "Margherita", order.Items[0].Name)

	t.Run("defaults to pickup", func(t *testing.T) {
		body := sampleOrder()
		delete(body, "type")
		created := createOrder(t, env, login.Token, body)
		require.Equal(t, models.OrderTypePickup, created.Type)
	})

	t.Run("rejects invalid payloads", func(t *testing.T) {
		cases := map[string]func(map[string]any){
			"no items":         func(b map[string]any) { b["items"] = []map[string]any{} },
			"missing customer": func(b map[string]any) { delete(b, "customer_name") },
			"unknown type":     func(b map[string]any) { b["type"] = "drone" },
			"zero quantity": func(b map[string]any) {
				b["items"] = []map[string]any{{"name": "Soup", "quantity": 0, "unit_price_cents": 100}}
			},
			"delivery without address": func(b map[string]any) { b["type"] = "delivery" },
			"price beyond int64 total": func(b map[string]any) {
				b["items"] = []map[string]any{{"name": "Caviar", "quantity": 2, "unit_price_cents": int64(math.MaxInt64/2 + 1)}}
			},
			"quantity above cap": func(b map[string]any) {
				b["items"] = []map[string]any{{"name": "Soup", "quantity": 10001, "unit_price_cents": 100}}
			},
		}
		for name, mutate := range cases {
			t.Run(name, func(t *testing.T) {
				body := sampleOrder()
				mutate(body)
				w := env.Request(http.MethodPost, "/api/orders", body, login.Token)
				testutil.RequireError(t, w, http.StatusBadRequest, "BAD_REQUEST")
			})
		}
	})
}

func TestListOrders(t *testing.T) {
	env := testutil.NewEnv(t)
	login := env.SignUp("Uma", "uma@example.com", password)
	other := env.SignUp("Vic", "vic@example.com", password)

	first := createOrder(t, env, login.Token, sampleOrder())
	delivery := sampleOrder()
	delivery["customer_name"] = "Dana Delivery"
	delivery["type"] = "delivery"
	delivery["delivery_address"] = "1 Main St"
	createOrder(t, env, login.Token, delivery)
	createOrder(t, env, other.Token, sampleOrder())

	w := env.Request(http.MethodPatch, "/api/orders/"+first.ID+"/status", map[string]string{"status": "in_progress"}, login.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodGet, "/api/orders?per_page=1", nil, login.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := testutil.DecodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	require.Equal(t, 2, resp.Meta.Total)
	require.Equal(t, 2, resp.Meta.TotalPages)
	var orders []models.Order
	testutil.DecodeInto(t, resp.Data, &orders)
	require.Len(t, orders, 1)

	listWith := func(query string) []models.Order {
		w := env.Request(http.MethodGet, "/api/orders?"+query, nil, login.Token)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var out []models.Order
		testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &out)
		return out
	}

	byStatus := listWith("status=in_progress")
	require.Len(t, byStatus, 1)
	require.Equal(t, first.ID, byStatus[0].ID)

	byType := listWith("type=delivery")
	require.Len(t, byType, 1)
	require.Equal(t, "Dana Delivery", byType[0].CustomerName)

	bySearch := listWith("q=dana")
	require.Len(t, bySearch, 1)

	w = env.Request(http.MethodGet, "/api/orders?status=lost", nil, login.Token)
	testutil.RequireError(t, w, http.StatusBadRequest, "BAD_REQUEST")
}

func TestOrdersAreScopedToAccount(t *testing.T) {
	env := testutil.NewEnv(t)
	owner := env.SignUp("Wes", "wes@example.com", password)
	intruder := env.SignUp("Xia", "xia@example.com", password)

	order := createOrder(t, env, owner.Token, sampleOrder())
	path := "/api/orders/" + order.ID

	w := env.Request(http.MethodGet, path, nil, intruder.Token)
	testutil.RequireError(t, w, http.StatusNotFound, "ORDER_NOT_FOUND")

	w = env.Request(http.MethodPatch, path, map[string]string{"notes": "mine now"}, intruder.Token)
	testutil.RequireError(t, w, http.StatusNotFound, "ORDER_NOT_FOUND")

	w = env.Request(http.MethodPatch, path+"/status", map[string]string{"status": "cancelled"}, intruder.Token)
	testutil.RequireError(t, w, http.StatusNotFound, "ORDER_NOT_FOUND")

	w = env.Request(http.MethodDelete, path, nil, intruder.Token)
	testutil.RequireError(t, w, http.StatusNotFound, "ORDER_NOT_FOUND")

	w = env.Request(http.MethodGet, path, nil, owner.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestOrderStatusWorkflow(t *testing.T) {
	env := testutil.NewEnv(t)
	login := env.SignUp("Yan", "yan@example.com", password)
	order := createOrder(t, env, login.Token, sampleOrder())
	path := "/api/orders/" + order.ID + "/status"

	w := env.Request(http.MethodPatch, path, map[string]string{"status": "delivered"}, login.Token)
	testutil.RequireError(t, w, http.StatusConflict, "INVALID_STATUS_TRANSITION")

	w = env.Request(http.MethodPatch, path, map[string]string{"status": "shipped"}, login.Token)
	testutil.RequireError(t, w, http.StatusBadRequest, "BAD_REQUEST")

	for _, next := range []models.OrderStatus{
		models.OrderStatusInProgress,
		models.OrderStatusReady,
		models.OrderStatusDelivered,
	} {
		w = env.Request(http.MethodPatch, path, map[string]string{"status": string(next)}, login.Token)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var updated models.Order
		testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &updated)
		require.Equal(t, next, updated.Status)
	}

	w = env.Request(http.MethodPatch, path, map[string]string{"status": "cancelled"}, login.Token)
	testutil.RequireError(t, w, http.StatusConflict, "INVALID_STATUS_TRANSITION")

	w = env.Request(http.MethodPatch, "/api/orders/"+order.ID, map[string]string{"notes": "late"}, login.Token)
	testutil.RequireError(t, w, http.StatusConflict, "CONFLICT")

	var audits int64
	require.NoError(t, env.DB.Model(&models.AuditLog{}).
		Where("action = ?", services.AuditActionOrderStatus).
		Count(&audits).Error)
	require.Equal(t, int64(3), audits)
}

func TestUpdateOrder(t *testing.T) {
	env := testutil.NewEnv(t)
	login := env.SignUp("Zed", "zed@example.com", password)
	order := createOrder(t, env, login.Token, sampleOrder())
	path := "/api/orders/" + order.ID

	w := env.Request(http.MethodPatch, path, map[string]any{
		"customer_name": "Zed's Table",
		"notes":         " extra napkins ",
		"items": []map[string]any{
			{"name": "Calzone", "quantity": 3, "unit_price_cents": 900},
		},
	}, login.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var updated models.Order
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &updated)
	require.Equal(t, "Zed's Table", updated.CustomerName)
	require.Equal(t, "extra napkins", updated.Notes)
	require.Equal(t, int64(2700), updated.TotalCents)
	require.Len(t, updated.Items, 1)
	require.Equal(t, "Calzone", updated.Items[0].Name)

	var items int64
	require.NoError(t, env.DB.Model(&models.OrderItem{}).Where("order_id = ?", order.ID).Count(&items).Error)
	require.Equal(t, int64(1), items)

	w = env.Request(http.MethodPatch, path, map[string]any{"type": "delivery"}, login.Token)
	testutil.RequireError(t, w, http.StatusBadRequest, "BAD_REQUEST")

	w = env.Request(http.MethodPatch, path, map[string]any{"type": "delivery", "delivery_address": "9 Elm Rd"}, login.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &updated)
	require.Equal(t, models.OrderTypeDelivery, updated.Type)
	require.Equal(t, "9 Elm Rd", updated.DeliveryAddress)
}

func TestOrderStatsAndDelete(t *testing.T) {
	env := testutil.NewEnv(t)
	login := env.SignUp("Abe", "abe@example.com", password)

	first := createOrder(t, env, login.Token, sampleOrder())
	second := createOrder(t, env, login.Token, sampleOrder())
	w := env.Request(http.MethodPatch, "/api/orders/"+second.ID+"/status", map[string]string{"status": "cancelled"}, login.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodGet, "/api/orders/stats", nil, login.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var stats services.OrderStats
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &stats)
	require.Equal(t, int64(2), stats.Total)
	require.Equal(t, int64(1), stats.ByStatus[models.OrderStatusPending])
	require.Equal(t, int64(1), stats.ByStatus[models.OrderStatusCancelled])
	require.Equal(t, int64(0), stats.ByStatus[models.OrderStatusReady])
	require.Len(t, stats.ByStatus, len(models.OrderStatuses))

	w = env.Request(http.MethodDelete, "/api/orders/"+first.ID, nil, login.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodGet, "/api/orders/"+first.ID, nil, login.Token)
	testutil.RequireError(t, w, http.StatusNotFound, "ORDER_NOT_FOUND")

	w = env.Request(http.MethodDelete, "/api/orders/"+first.ID, nil, login.Token)
	testutil.RequireError(t, w, http.StatusNotFound, "ORDER_NOT_FOUND")

	var items int64
	require.NoError(t, env.DB.Model(&models.OrderItem{}).Where("order_id = ?", first.ID).Count(&items).Error)
	require.Zero(t, items)
}
