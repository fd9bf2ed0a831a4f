package public

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/z26b/storefront/internal/backend"
	"github.com/z26b/storefront/internal/cache"
	handlershared "github.com/z26b/storefront/internal/http/handlers/shared"
	"github.com/z26b/storefront/internal/provider"
	"github.com/z26b/storefront/internal/repository"
	"github.com/z26b/storefront/internal/service"

	"github.com/gin-gonic/gin"
)

// fakeBackend 模拟远端 REST 接口
type fakeBackend struct {
	mu        sync.Mutex
	cart      string
	addresses string
	status    int
	calls     []string
}

func (b *fakeBackend) record(r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	body, _ := io.ReadAll(r.Body)
	b.calls = append(b.calls, r.Method+" "+r.URL.Path+" "+strings.TrimSpace(string(body)))
}

func (b *fakeBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.record(r)
	if b.status != 0 {
		w.WriteHeader(b.status)
		return
	}
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/cart/items":
		_, _ = w.Write([]byte(`{"data":` + b.cart + `}`))
	case r.Method == http.MethodGet && r.URL.Path == "/address/list":
		_, _ = w.Write([]byte(`{"data":` + b.addresses + `}`))
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/cart/update/"):
		_, _ = w.Write([]byte(`{"data":null}`))
	case r.Method == http.MethodPost && r.URL.Path == "/order/create":
		_, _ = w.Write([]byte(`{"data":{"order":{"_id":"o-1","status":"TO_PAY"}}}`))
	case r.Method == http.MethodGet && r.URL.Path == "/user/balance":
		_, _ = w.Write([]byte(`{"data":{"balance":"88.80"}}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

const twoItemCart = `[` +
	`{"_id":"c1","skuId":"s1","quantity":2,"isSelected":true,"sku":{"_id":"s1","price":"12.50","spu":{"_id":"p1","name":"咖啡豆"}}},` +
	`{"_id":"c2","skuId":"s2","quantity":1,"isSelected":false,"sku":{"_id":"s2","price":"10.00","spu":{"_id":"p2","name":"滤纸"}}}` +
	`]`

const oneAddress = `[{"_id":"a1","name":"张三","phone":"13800000000","provinceName":"浙江省","cityName":"杭州市",` +
	`"districtName":"西湖区","detailAddress":"文三路 1 号","isDefault":1}]`

func newTestEngine(t *testing.T, fake *fakeBackend) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	client := backend.NewClient(backend.Options{BaseURL: server.URL, Timeout: time.Second})
	cartRepo := repository.NewCartRepository(client)
	skuRepo := repository.NewSkuRepository(client)
	addressRepo := repository.NewAddressRepository(client)
	orderRepo := repository.NewOrderRepository(client)
	images := service.NewImageResolver("")
	store := cache.NewMemorySnapshotStore(time.Minute)
	invalidator := service.NewSnapshotInvalidator(store, nil)
	cart := service.NewCartService(cartRepo, skuRepo, images, service.CartServiceOptions{UpdateDebounce: time.Hour})
	checkout := service.NewCheckoutService(cartRepo, skuRepo, addressRepo, images, 99, 4)

	h := New(&provider.Container{
		CartRepo:           cartRepo,
		SkuRepo:            skuRepo,
		AddressRepo:        addressRepo,
		OrderRepo:          orderRepo,
		SnapshotStore:      store,
		ImageResolver:      images,
		CartInvalidator:    invalidator,
		CartService:        cart,
		CartSessionService: service.NewCartSessionService(cart, store, invalidator),
		CheckoutService:    checkout,
		OrderSubmitter:     service.NewOrderSubmitter(checkout, cart, orderRepo, invalidator, service.OrderSubmitterOptions{}),
		AddressService:     service.NewAddressService(addressRepo),
		OrderQueryService:  service.NewOrderQueryService(orderRepo, images),
	})
	t.Cleanup(cart.Flush)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		handlershared.SetIdentity(c, backend.Identity{OpenID: c.GetHeader("X-OpenID")})
		c.Next()
	})
	r.GET("/cart", h.GetCart)
	r.POST("/cart/items", h.AddCartItem)
	r.PATCH("/cart/items/:id/quantity", h.UpdateCartItemQuantity)
	r.PATCH("/cart/items/:id/selected", h.UpdateCartItemSelected)
	r.DELETE("/cart/items/:id", h.DeleteCartItem)
	r.POST("/cart/settle", h.SettleCart)
	r.GET("/checkout", h.GetCheckout)
	r.POST("/checkout/submit", h.SubmitCheckout)
	r.GET("/checkout/attempts", h.ListCheckoutAttempts)
	r.GET("/wallet/balance", h.GetWalletBalance)
	return r
}

type apiResponse struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

func doRequest(t *testing.T, r *gin.Engine, method, path, body string, headers ...string) apiResponse {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-OpenID", "oid-test")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("%s %s http status want 200 got %d", method, path, w.Code)
	}
	var resp apiResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v body=%s", err, w.Body.String())
	}
	return resp
}

func TestGetCartReturnsSummary(t *testing.T) {
	r := newTestEngine(t, &fakeBackend{cart: twoItemCart, addresses: oneAddress})

	resp := doRequest(t, r, http.MethodGet, "/cart", "")
	if resp.StatusCode != 0 {
		t.Fatalf("status_code want 0 got %d (%s)", resp.StatusCode, resp.Msg)
	}
	var view service.CartView
	if err := json.Unmarshal(resp.Data, &view); err != nil {
		t.Fatalf("decode cart view failed: %v", err)
	}
	if len(view.Items) != 2 || view.Summary.SelectedCount != 1 {
		t.Fatalf("unexpected cart view: %+v", view)
	}
	if got := view.Summary.SelectedTotal.String(); got != "25.00" {
		t.Fatalf("selected total want 25.00 got %s", got)
	}
	if view.Version <= 0 {
		t.Fatalf("version should be positive, got %d", view.Version)
	}
}

func TestAddCartItemRejectsInvalidQuantity(t *testing.T) {
	fake := &fakeBackend{cart: twoItemCart}
	r := newTestEngine(t, fake)

	for _, body := range []string{`{"sku_id":"s1","quantity":"abc"}`, `{"sku_id":"s1","quantity":0}`, `{"sku_id":"s1","quantity":"1.5"}`} {
		resp := doRequest(t, r, http.MethodPost, "/cart/items", body)
		if resp.StatusCode != 400 {
			t.Fatalf("body %s: status_code want 400 got %d", body, resp.StatusCode)
		}
	}
	if calls := fake.Calls(); len(calls) != 0 {
		t.Fatalf("invalid quantity must not reach backend, got %v", calls)
	}

	resp := doRequest(t, r, http.MethodPost, "/cart/items", `{"quantity":1}`)
	if resp.StatusCode != 400 {
		t.Fatalf("missing sku_id status_code want 400 got %d", resp.StatusCode)
	}
}

func TestUpdateQuantityIsLocalUntilSettle(t *testing.T) {
	fake := &fakeBackend{cart: twoItemCart}
	r := newTestEngine(t, fake)

	resp := doRequest(t, r, http.MethodPatch, "/cart/items/c1/quantity", `{"quantity":"5"}`)
	if resp.StatusCode != 0 {
		t.Fatalf("status_code want 0 got %d (%s)", resp.StatusCode, resp.Msg)
	}
	var view service.CartView
	if err := json.Unmarshal(resp.Data, &view); err != nil {
		t.Fatalf("decode cart view failed: %v", err)
	}
	if view.Items[0].Quantity != 5 || view.Summary.SelectedTotal.String() != "62.50" {
		t.Fatalf("local quantity not applied: %+v", view)
	}
	for _, call := range fake.Calls() {
		if strings.HasPrefix(call, "PUT /cart/update/c1") {
			t.Fatalf("quantity should be debounced, got %s", call)
		}
	}

	resp = doRequest(t, r, http.MethodPost, "/cart/settle", "")
	if resp.StatusCode != 0 {
		t.Fatalf("settle status_code want 0 got %d (%s)", resp.StatusCode, resp.Msg)
	}
	var flushed bool
	for _, call := range fake.Calls() {
		if strings.HasPrefix(call, "PUT /cart/update/c1") && strings.Contains(call, `"quantity":5`) {
			flushed = true
		}
	}
	if !flushed {
		t.Fatalf("settle should flush pending quantity, calls=%v", fake.Calls())
	}
}

func TestDeleteCartItemRequiresConfirm(t *testing.T) {
	fake := &fakeBackend{cart: twoItemCart}
	r := newTestEngine(t, fake)

	resp := doRequest(t, r, http.MethodDelete, "/cart/items/c1", "")
	if resp.StatusCode != 400 {
		t.Fatalf("status_code want 400 got %d", resp.StatusCode)
	}
	for _, call := range fake.Calls() {
		if strings.HasPrefix(call, "DELETE") {
			t.Fatalf("unconfirmed delete reached backend: %s", call)
		}
	}
}

func TestSubmitCheckoutSuccess(t *testing.T) {
	fake := &fakeBackend{cart: twoItemCart, addresses: oneAddress}
	r := newTestEngine(t, fake)

	resp := doRequest(t, r, http.MethodPost, "/checkout/submit", `{"mode":"cart","remarks":" 尽快发货 "}`)
	if resp.StatusCode != 0 {
		t.Fatalf("status_code want 0 got %d (%s)", resp.StatusCode, resp.Msg)
	}
	if resp.Msg != "下单成功" {
		t.Fatalf("msg want 下单成功 got %s", resp.Msg)
	}
	var data struct {
		SubmissionID string   `json:"submission_id"`
		State        string   `json:"state"`
		Trace        []string `json:"trace"`
		TotalPrice   string   `json:"total_price"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("decode submission failed: %v", err)
	}
	if data.SubmissionID == "" || data.State != "success" || data.TotalPrice != "25.00" {
		t.Fatalf("unexpected submission: %+v", data)
	}
	if strings.Join(data.Trace, ">") != "idle>validating>syncing_selection>submitting>success" {
		t.Fatalf("unexpected trace %v", data.Trace)
	}

	var created string
	for _, call := range fake.Calls() {
		if strings.HasPrefix(call, "POST /order/create") {
			created = call
		}
	}
	if !strings.Contains(created, `"addressId":"a1"`) || !strings.Contains(created, `"remarks":"尽快发货"`) {
		t.Fatalf("unexpected create call %q", created)
	}
}

func TestSubmitCheckoutEmptySelection(t *testing.T) {
	cart := `[{"_id":"c1","skuId":"s1","quantity":1,"isSelected":false,"sku":{"_id":"s1","price":"1.00","spu":{"_id":"p1","name":"x"}}}]`
	r := newTestEngine(t, &fakeBackend{cart: cart, addresses: oneAddress})

	resp := doRequest(t, r, http.MethodPost, "/checkout/submit", `{}`)
	if resp.StatusCode != 4001 {
		t.Fatalf("status_code want 4001 got %d", resp.StatusCode)
	}
	var data struct {
		State string   `json:"state"`
		Trace []string `json:"trace"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("decode submission failed: %v", err)
	}
	if data.State != "failed" {
		t.Fatalf("state want failed got %s", data.State)
	}

	en := doRequest(t, r, http.MethodPost, "/checkout/submit", `{}`, "X-Locale", "en-US")
	if en.Msg != "No items selected in cart" {
		t.Fatalf("localized msg want english, got %s", en.Msg)
	}
}

func TestSubmitCheckoutMissingAddress(t *testing.T) {
	fake := &fakeBackend{cart: twoItemCart, addresses: `[]`}
	r := newTestEngine(t, fake)

	resp := doRequest(t, r, http.MethodPost, "/checkout/submit", `{"mode":"cart"}`)
	if resp.StatusCode != 4002 {
		t.Fatalf("status_code want 4002 got %d", resp.StatusCode)
	}
	for _, call := range fake.Calls() {
		if strings.HasPrefix(call, "POST /order/create") {
			t.Fatalf("order must not be created without address")
		}
	}
}

func TestBackendUnauthorizedMapsTo401(t *testing.T) {
	r := newTestEngine(t, &fakeBackend{status: http.StatusUnauthorized})

	resp := doRequest(t, r, http.MethodGet, "/cart", "")
	if resp.StatusCode != 401 {
		t.Fatalf("status_code want 401 got %d", resp.StatusCode)
	}
}

func TestBackendServerErrorMapsTo502(t *testing.T) {
	r := newTestEngine(t, &fakeBackend{status: http.StatusInternalServerError})

	resp := doRequest(t, r, http.MethodGet, "/wallet/balance", "")
	if resp.StatusCode != 502 {
		t.Fatalf("status_code want 502 got %d", resp.StatusCode)
	}
}

func TestGetCheckoutDirectModeValidatesQuantity(t *testing.T) {
	r := newTestEngine(t, &fakeBackend{cart: twoItemCart, addresses: oneAddress})

	resp := doRequest(t, r, http.MethodGet, "/checkout?mode=direct&sku_id=s1&quantity=-1", "")
	if resp.StatusCode != 400 {
		t.Fatalf("status_code want 400 got %d", resp.StatusCode)
	}
	resp = doRequest(t, r, http.MethodGet, "/checkout?mode=bogus", "")
	if resp.StatusCode != 400 {
		t.Fatalf("unknown mode status_code want 400 got %d", resp.StatusCode)
	}
}

func TestListCheckoutAttemptsWithoutJournal(t *testing.T) {
	r := newTestEngine(t, &fakeBackend{})

	resp := doRequest(t, r, http.MethodGet, "/checkout/attempts?page=1&page_size=5", "")
	if resp.StatusCode != 0 {
		t.Fatalf("status_code want 0 got %d", resp.StatusCode)
	}
	if string(resp.Data) != "[]" {
		t.Fatalf("data want [] got %s", resp.Data)
	}
}

func TestQuantityFieldUnmarshal(t *testing.T) {
	var req CartQuantityRequest
	if err := json.Unmarshal([]byte(`{"quantity":"3"}`), &req); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if q, err := req.Quantity.Parse(99); err != nil || q != 3 {
		t.Fatalf("parse want 3 got %d err=%v", q, err)
	}

	req = CartQuantityRequest{}
	if err := json.Unmarshal([]byte(`{"quantity":null}`), &req); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if req.Quantity.set {
		t.Fatalf("null quantity should be treated as unset")
	}
	if _, err := req.Quantity.Parse(99); err == nil {
		t.Fatalf("unset quantity should not parse")
	}
}
