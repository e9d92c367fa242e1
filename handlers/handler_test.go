package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"food-marketplace-api/config"
	"food-marketplace-api/middleware"
	"food-marketplace-api/models"
	"food-marketplace-api/realtime"
	"food-marketplace-api/services"
	"food-marketplace-api/storage"
	"food-marketplace-api/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func init() { gin.SetMode(gin.TestMode) }

type testEnv struct {
	db   *gorm.DB
	auth *middleware.Auth
	r    *gin.Engine

	customer   models.User
	owner      models.User
	restaurant models.Restaurant
	item       models.MenuItem
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := config.OpenDatabase(config.Database{Driver: "sqlite", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := config.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := config.SeedRewardTiers(db); err != nil {
		t.Fatalf("seed: %v", err)
	}

	st := store.New(db, realtime.NewHub())
	rewards := services.NewRewardService(st, config.Rewards{Rate: 1, FirstOrderMultiplier: 2, WeekendMultiplier: 1.5})
	fees := config.Fees{Delivery: decimal.RequireFromString("2.99"), ServicePercentage: decimal.RequireFromString("5")}
	e := &testEnv{db: db, auth: middleware.NewAuth("handler-test-secret", time.Hour)}
	h := New(Deps{
		Store:         st,
		Auth:          e.auth,
		Orders:        services.NewOrderService(st, nil, rewards, fees),
		Rewards:       rewards,
		Ratings:       services.NewRatingService(st),
		Messages:      services.NewMessageService(st),
		Applications:  services.NewApplicationService(st),
		Images:        storage.NewLocalStore(t.TempDir(), "/uploads"),
		MaxImageBytes: 1 << 20,
	})

	e.customer = e.user(t, "customer@test.io", models.RoleCustomer)
	e.owner = e.user(t, "owner@test.io", models.RoleRestaurant)
	e.restaurant = models.Restaurant{OwnerID: e.owner.ID, Name: "Noodle Bar", IsOpen: true}
	e.create(t, &e.restaurant)
	e.item = models.MenuItem{RestaurantID: e.restaurant.ID, Name: "Ramen", Price: decimal.RequireFromString("10.00"), IsAvailable: true}
	e.create(t, &e.item)

	r := gin.New()
	authRequired := e.auth.Required()
	r.POST("/api/customer/orders", authRequired, middleware.RoleRequired(models.RoleCustomer), h.PlaceOrder)
	r.PUT("/api/restaurant/orders/:id/status", authRequired, middleware.RoleRequired(models.RoleRestaurant), h.UpdateOrderStatus)
	r.PATCH("/api/orders/restaurant/:orderId", authRequired, middleware.RoleRequired(models.RoleRestaurant), h.PatchRestaurantOrder)
	r.POST("/api/restaurant/menu/:itemId/image", authRequired, middleware.RoleRequired(models.RoleRestaurant), h.UploadMenuItemImage)
	r.GET("/ws/orders", authRequired, h.OrdersSocket)
	e.r = r
	return e
}

func (e *testEnv) create(t *testing.T, v interface{}) {
	t.Helper()
	if err := e.db.Create(v).Error; err != nil {
		t.Fatalf("create %T: %v", v, err)
	}
}

func (e *testEnv) user(t *testing.T, email string, role models.UserRole) models.User {
	u := models.User{Name: email, Email: email, PasswordHash: "x", Role: role}
	e.create(t, &u)
	return u
}

func (e *testEnv) token(t *testing.T, u models.User) string {
	t.Helper()
	tok, err := e.auth.GenerateToken(&u)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func (e *testEnv) pendingOrder(t *testing.T) models.Order {
	t.Helper()
	o := models.Order{
		OrderNumber:     services.NewOrderNumber(time.Now()),
		IdempotencyKey:  uuid.NewString(),
		CustomerID:      e.customer.ID,
		RestaurantID:    e.restaurant.ID,
		Status:          models.StatusPending,
		Subtotal:        decimal.RequireFromString("10.00"),
		Total:           decimal.RequireFromString("13.49"),
		PaymentMethod:   models.PaymentCard,
		PaymentStatus:   models.PaymentPaid,
		DeliveryAddress: "2 High St",
	}
	e.create(t, &o)
	return o
}

func (e *testEnv) do(t *testing.T, method, path string, as models.User, body interface{}, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.token(t, as))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func (e *testEnv) status(t *testing.T, orderID uint) models.OrderStatus {
	t.Helper()
	var o models.Order
	if err := e.db.First(&o, orderID).Error; err != nil {
		t.Fatal(err)
	}
	return o.Status
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func TestPatchRestaurantOrderAccepts(t *testing.T) {
	e := newEnv(t)
	order := e.pendingOrder(t)

	w := e.do(t, http.MethodPatch, fmt.Sprintf("/api/orders/restaurant/%d", order.ID), e.owner, gin.H{
		"status":       "confirmed",
		"restaurantId": e.restaurant.ID,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	decode(t, w, &resp)
	if !resp.Success || resp.Error != "" {
		t.Fatalf("response = %+v", resp)
	}
	if got := e.status(t, order.ID); got != models.StatusConfirmed {
		t.Fatalf("order status = %s, want confirmed", got)
	}
}

func TestPatchRestaurantOrderRejectsIllegalTransition(t *testing.T) {
	e := newEnv(t)
	order := e.pendingOrder(t)

	w := e.do(t, http.MethodPatch, fmt.Sprintf("/api/orders/restaurant/%d", order.ID), e.owner, gin.H{
		"status":       "ready",
		"restaurantId": e.restaurant.ID,
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	decode(t, w, &resp)
	if resp.Success || resp.Error == "" {
		t.Fatalf("response = %+v", resp)
	}
	if got := e.status(t, order.ID); got != models.StatusPending {
		t.Fatalf("order status = %s, want pending", got)
	}
}

func TestPatchRestaurantOrderChecksRestaurant(t *testing.T) {
	e := newEnv(t)
	order := e.pendingOrder(t)

	w := e.do(t, http.MethodPatch, fmt.Sprintf("/api/orders/restaurant/%d", order.ID), e.owner, gin.H{
		"status":       "confirmed",
		"restaurantId": e.restaurant.ID + 99,
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}

	w = e.do(t, http.MethodPatch, fmt.Sprintf("/api/orders/restaurant/%d", order.ID), e.owner, gin.H{
		"status":       "cancelled",
		"restaurantId": e.restaurant.ID,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("reject without reason status = %d: %s", w.Code, w.Body)
	}
	if got := e.status(t, order.ID); got != models.StatusPending {
		t.Fatalf("order status = %s, want pending", got)
	}
}

func TestUpdateOrderStatusListsValidNextStates(t *testing.T) {
	e := newEnv(t)
	order := e.pendingOrder(t)

	w := e.do(t, http.MethodPut, fmt.Sprintf("/api/restaurant/orders/%d/status", order.ID), e.owner, gin.H{"status": "delivered"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	var resp struct {
		Current string   `json:"current_status"`
		Valid   []string `json:"valid_next_states"`
	}
	decode(t, w, &resp)
	if resp.Current != "pending" || len(resp.Valid) != 2 {
		t.Fatalf("response = %+v", resp)
	}

	w = e.do(t, http.MethodPut, fmt.Sprintf("/api/restaurant/orders/%d/status", order.ID), e.owner, gin.H{"status": "bogus"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown status code = %d", w.Code)
	}
}

func TestPlaceOrderIsIdempotent(t *testing.T) {
	e := newEnv(t)
	body := gin.H{
		"restaurant_id":    e.restaurant.ID,
		"delivery_address": "2 High St",
		"payment_method":   "card",
		"items":            []gin.H{{"menu_item_id": e.item.ID, "quantity": 1}},
	}

	type placed struct {
		Order struct {
			ID     uint               `json:"id"`
			Status models.OrderStatus `json:"status"`
			Total  decimal.Decimal    `json:"total"`
		} `json:"order"`
	}
	w := e.do(t, http.MethodPost, "/api/customer/orders", e.customer, body, "Idempotency-Key", "checkout-1")
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	var first placed
	decode(t, w, &first)
	if first.Order.Status != models.StatusPending || !first.Order.Total.Equal(decimal.RequireFromString("13.49")) {
		t.Fatalf("order = %+v", first.Order)
	}

	w = e.do(t, http.MethodPost, "/api/customer/orders", e.customer, body, "Idempotency-Key", "checkout-1")
	if w.Code != http.StatusCreated {
		t.Fatalf("replay status = %d: %s", w.Code, w.Body)
	}
	var replay placed
	decode(t, w, &replay)
	if replay.Order.ID != first.Order.ID {
		t.Fatalf("replay created order %d, want %d", replay.Order.ID, first.Order.ID)
	}
	var count int64
	e.db.Model(&models.Order{}).Count(&count)
	if count != 1 {
		t.Fatalf("orders = %d, want 1", count)
	}
}

func TestPlaceOrderValidatesBody(t *testing.T) {
	e := newEnv(t)
	w := e.do(t, http.MethodPost, "/api/customer/orders", e.customer, gin.H{
		"restaurant_id":    e.restaurant.ID,
		"delivery_address": "2 High St",
		"items":            []gin.H{},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
}

func TestRestaurantBoardAcceptsOverWebsocket(t *testing.T) {
	e := newEnv(t)
	order := e.pendingOrder(t)
	srv := httptest.NewServer(e.r)
	t.Cleanup(srv.Close)

	url := fmt.Sprintf("ws%s/ws/orders?restaurant_id=%d&token=%s",
		strings.TrimPrefix(srv.URL, "http"), e.restaurant.ID, e.token(t, e.owner))
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()
	_ = ws.SetReadDeadline(time.Now().Add(5 * time.Second))

	var snap wsFrame
	if err := ws.ReadJSON(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.Type != "snapshot" || len(snap.Orders) != 1 || snap.Orders[0].ID != order.ID {
		t.Fatalf("snapshot = %+v", snap)
	}

	if err := ws.WriteJSON(wsAction{Action: "accept", OrderID: order.ID}); err != nil {
		t.Fatal(err)
	}
	var seen []string
	for {
		var f wsFrame
		if err := ws.ReadJSON(&f); err != nil {
			t.Fatalf("read after %v: %v", seen, err)
		}
		seen = append(seen, f.Type)
		if f.Type == "order.optimistic" && f.Status != models.StatusConfirmed {
			t.Fatalf("optimistic frame = %+v", f)
		}
		if f.Type == "order.decision" {
			if f.State != "confirmed" || f.Status != models.StatusConfirmed || f.Error != "" {
				t.Fatalf("decision frame = %+v", f)
			}
			break
		}
	}
	if seen[0] != "order.optimistic" {
		t.Fatalf("frames = %v, want the optimistic view first", seen)
	}
	if got := e.status(t, order.ID); got != models.StatusConfirmed {
		t.Fatalf("order status = %s, want confirmed", got)
	}
}

func TestRestaurantBoardRollsBackRefusedAction(t *testing.T) {
	e := newEnv(t)
	order := e.pendingOrder(t)
	srv := httptest.NewServer(e.r)
	t.Cleanup(srv.Close)

	url := fmt.Sprintf("ws%s/ws/orders?restaurant_id=%d&token=%s",
		strings.TrimPrefix(srv.URL, "http"), e.restaurant.ID, e.token(t, e.owner))
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()
	_ = ws.SetReadDeadline(time.Now().Add(5 * time.Second))

	var snap wsFrame
	if err := ws.ReadJSON(&snap); err != nil {
		t.Fatal(err)
	}
	// a rejection without a reason is refused by the server
	if err := ws.WriteJSON(wsAction{Action: "reject", OrderID: order.ID}); err != nil {
		t.Fatal(err)
	}
	for {
		var f wsFrame
		if err := ws.ReadJSON(&f); err != nil {
			t.Fatal(err)
		}
		if f.Type == "order.decision" {
			if f.State != "failed" || f.Status != models.StatusPending || f.Error == "" {
				t.Fatalf("decision frame = %+v", f)
			}
			break
		}
	}
	if got := e.status(t, order.ID); got != models.StatusPending {
		t.Fatalf("order status = %s, want pending", got)
	}
}

func TestRestaurantBoardSurvivesMalformedMessage(t *testing.T) {
	e := newEnv(t)
	order := e.pendingOrder(t)
	srv := httptest.NewServer(e.r)
	t.Cleanup(srv.Close)

	url := fmt.Sprintf("ws%s/ws/orders?restaurant_id=%d&token=%s",
		strings.TrimPrefix(srv.URL, "http"), e.restaurant.ID, e.token(t, e.owner))
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()
	_ = ws.SetReadDeadline(time.Now().Add(5 * time.Second))

	var snap wsFrame
	if err := ws.ReadJSON(&snap); err != nil {
		t.Fatal(err)
	}
	for _, bad := range []string{`{"action": accept}`, `{"action":"accept","order_id":"one"}`} {
		if err := ws.WriteMessage(websocket.TextMessage, []byte(bad)); err != nil {
			t.Fatal(err)
		}
		var f wsFrame
		if err := ws.ReadJSON(&f); err != nil {
			t.Fatalf("session closed after %s: %v", bad, err)
		}
		if f.Type != "error" || f.Error == "" {
			t.Fatalf("frame after %s = %+v", bad, f)
		}
	}

	if err := ws.WriteJSON(wsAction{Action: "accept", OrderID: order.ID}); err != nil {
		t.Fatal(err)
	}
	for {
		var f wsFrame
		if err := ws.ReadJSON(&f); err != nil {
			t.Fatal(err)
		}
		if f.Type == "order.decision" {
			if f.State != "confirmed" || f.Status != models.StatusConfirmed {
				t.Fatalf("decision frame = %+v", f)
			}
			break
		}
	}
}

func TestOrdersSocketRefusesStrangers(t *testing.T) {
	e := newEnv(t)
	order := e.pendingOrder(t)
	stranger := e.user(t, "stranger@test.io", models.RoleCustomer)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/ws/orders?order_id=%d&token=%s", order.ID, e.token(t, stranger)), nil)
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
}
