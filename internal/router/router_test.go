package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"blind_box/internal/config"
	"blind_box/internal/model"
	"blind_box/internal/queue"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// capturePublisher 只记录事件，不连外部系统。
type capturePublisher struct {
	mu     sync.Mutex
	events []queue.OrderEvent
}

func (p *capturePublisher) Publish(_ context.Context, ev queue.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *capturePublisher) all() []queue.OrderEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]queue.OrderEvent, len(p.events))
	copy(out, p.events)
	return out
}

func testConfig(t *testing.T) config.AppConfig {
	t.Helper()
	return config.AppConfig{
		HTTPAddr:       ":0",
		RedisAddr:      "127.0.0.1:1",
		BuyRateLimit:   1000,
		BuyRateWindow:  time.Second,
		StockCacheTTL:  time.Minute,
		RewardFeedSize: 50,
		JWTSecret:      "test-secret",
		JWTExpiry:      time.Hour,
		UploadDir:      t.TempDir(),
		UploadMaxSize:  1 << 20,
	}
}

// newTestRouter 组装一个只依赖本地 sqlite 的路由。
// Redis 指向不可达端口，限流放行、缓存回源、滚动条降级这些路径都会被走到。
func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB, *capturePublisher) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL",
		filepath.Join(t.TempDir(), "router_test.db"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&model.User{}, &model.Product{}, &model.SubItem{},
		&model.Order{}, &model.CommunityPost{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	rdb := rd.NewClient(&rd.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		ReadTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	pub := &capturePublisher{}
	r := gin.New()
	Setup(r, db, rdb, pub, testConfig(t))
	return r, db, pub
}

// doJSON 发起一次 JSON 请求，token 非空时带上 Bearer 头。
func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}, token string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp map[string]interface{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response %q: %v", w.Body.String(), err)
		}
	}
	return w, resp
}

// registerAndLogin 注册并登录，返回 token 与用户 ID。
func registerAndLogin(t *testing.T, r *gin.Engine, username string) (string, uint) {
	t.Helper()
	w, resp := doJSON(t, r, http.MethodPost, "/api/register", gin.H{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret123",
	}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %v", username, w.Code, resp)
	}
	userID := uint(resp["data"].(map[string]interface{})["user_id"].(float64))

	w, resp = doJSON(t, r, http.MethodPost, "/api/login", gin.H{
		"username": username,
		"password": "secret123",
	}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %v", username, w.Code, resp)
	}
	token := resp["data"].(map[string]interface{})["token"].(string)
	if token == "" {
		t.Fatal("empty token")
	}
	return token, userID
}

// createTestBox 以卖家身份建一个两款式的盲盒，返回 product_id。
func createTestBox(t *testing.T, r *gin.Engine, token string, price float64) uint {
	t.Helper()
	w, resp := doJSON(t, r, http.MethodPost, "/api/products", gin.H{
		"name":        "星空系列",
		"description": "二款随机",
		"price":       price,
		"cover_image": "/uploads/cover.png",
		"sub_products": []gin.H{
			{"name": "常规款", "image_url": "/uploads/a.png", "quantity": 3},
			{"name": "隐藏款", "image_url": "/uploads/b.png", "quantity": 1},
		},
	}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("create product: status %d body %v", w.Code, resp)
	}
	return uint(resp["data"].(map[string]interface{})["product_id"].(float64))
}

func TestRegisterAndLogin(t *testing.T) {
	r, _, _ := newTestRouter(t)

	token, userID := registerAndLogin(t, r, "alice")
	if token == "" || userID == 0 {
		t.Fatalf("unexpected credentials: token=%q id=%d", token, userID)
	}

	// 重复注册同名用户
	w, resp := doJSON(t, r, http.MethodPost, "/api/register", gin.H{
		"username": "alice",
		"email":    "other@example.com",
		"password": "secret123",
	}, "")
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate register: expected 409, got %d body %v", w.Code, resp)
	}

	// 密码错误与用户不存在同文案
	w, resp = doJSON(t, r, http.MethodPost, "/api/login", gin.H{
		"username": "alice", "password": "wrong-pass",
	}, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad password: expected 401, got %d", w.Code)
	}
	badMsg := resp["msg"]
	w, resp = doJSON(t, r, http.MethodPost, "/api/login", gin.H{
		"username": "nobody", "password": "wrong-pass",
	}, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unknown user: expected 401, got %d", w.Code)
	}
	if resp["msg"] != badMsg {
		t.Errorf("login failure messages differ: %v vs %v", badMsg, resp["msg"])
	}

	w, _ = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/user/%d", userID), nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("get user: expected 200, got %d", w.Code)
	}
	w, _ = doJSON(t, r, http.MethodGet, "/api/user/99999", nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("get missing user: expected 404, got %d", w.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w, _ := doJSON(t, r, http.MethodPost, "/api/products", gin.H{}, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("create product without token: expected 401, got %d", w.Code)
	}
	w, _ = doJSON(t, r, http.MethodPost, "/api/orders", gin.H{}, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("purchase without token: expected 401, got %d", w.Code)
	}
	w, _ = doJSON(t, r, http.MethodPost, "/api/orders", gin.H{}, "not-a-jwt")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("purchase with garbage token: expected 401, got %d", w.Code)
	}
}

func TestCreateProductAndStock(t *testing.T) {
	r, _, _ := newTestRouter(t)
	sellerToken, sellerID := registerAndLogin(t, r, "seller")
	productID := createTestBox(t, r, sellerToken, 59.9)

	// 库存 = 子款式数量之和；Redis 不可用时回源 DB
	w, resp := doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/products/%d/stock", productID), nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get stock: status %d body %v", w.Code, resp)
	}
	if stock := resp["data"].(map[string]interface{})["stock"].(float64); stock != 4 {
		t.Errorf("expected stock 4, got %v", stock)
	}

	// 列表里带卖家用户名
	w, resp = doJSON(t, r, http.MethodGet, "/api/products?search=星空", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("list products: status %d", w.Code)
	}
	products := resp["data"].(map[string]interface{})["products"].([]interface{})
	if len(products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(products))
	}
	if name := products[0].(map[string]interface{})["seller_username"]; name != "seller" {
		t.Errorf("expected seller_username %q, got %v", "seller", name)
	}

	// 详情含全部子款式
	w, resp = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/products/%d/details", productID), nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get details: status %d", w.Code)
	}
	detail := resp["data"].(map[string]interface{})
	subs := detail["product"].(map[string]interface{})["sub_items"].([]interface{})
	if len(subs) != 2 {
		t.Errorf("expected 2 sub items, got %d", len(subs))
	}

	// 子款式不足 2 个被拒绝
	w, _ = doJSON(t, r, http.MethodPost, "/api/products", gin.H{
		"name": "单款", "description": "x", "price": 1,
		"sub_products": []gin.H{{"name": "唯一款", "image_url": "/a.png", "quantity": 1}},
	}, sellerToken)
	if w.Code != http.StatusBadRequest {
		t.Errorf("create with 1 sub item: expected 400, got %d", w.Code)
	}

	// 卖家商品列表
	w, resp = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/user/%d/products", sellerID), nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("list user products: status %d", w.Code)
	}
	if list := resp["data"].([]interface{}); len(list) != 1 {
		t.Errorf("expected 1 product for seller, got %d", len(list))
	}
}

func TestPurchaseFlow(t *testing.T) {
	r, db, pub := newTestRouter(t)
	sellerToken, sellerID := registerAndLogin(t, r, "seller")
	buyerToken, buyerID := registerAndLogin(t, r, "buyer")
	productID := createTestBox(t, r, sellerToken, 59.9)

	w, resp := doJSON(t, r, http.MethodPost, "/api/orders", gin.H{
		"buyer_id":   buyerID,
		"seller_id":  sellerID,
		"product_id": productID,
		"price":      59.9,
	}, buyerToken)
	if w.Code != http.StatusCreated {
		t.Fatalf("purchase: status %d body %v", w.Code, resp)
	}
	data := resp["data"].(map[string]interface{})
	orderNo := data["order_no"].(string)
	if orderNo == "" {
		t.Error("empty order_no")
	}
	reward := data["reward"].(map[string]interface{})
	name := reward["name"].(string)
	if name != "常规款" && name != "隐藏款" {
		t.Errorf("unexpected reward name %q", name)
	}

	// 库存扣减落库
	var prod model.Product
	if err := db.First(&prod, productID).Error; err != nil {
		t.Fatal(err)
	}
	if prod.RemainingQuantity != 3 {
		t.Errorf("expected remaining 3, got %d", prod.RemainingQuantity)
	}

	// 订单事件已发布
	events := pub.all()
	if len(events) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(events))
	}
	if events[0].OrderNo != orderNo || events[0].BuyerID != buyerID {
		t.Errorf("event mismatch: %+v", events[0])
	}

	// 买家订单列表里有这单，带卖家名与商品名
	w, resp = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/user/%d/orders", buyerID), nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("list orders: status %d", w.Code)
	}
	orders := resp["data"].([]interface{})
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}
	row := orders[0].(map[string]interface{})
	if row["seller_username"] != "seller" || row["product_name"] != "星空系列" {
		t.Errorf("order row mismatch: %v", row)
	}
}

func TestPurchaseErrors(t *testing.T) {
	r, _, _ := newTestRouter(t)
	sellerToken, sellerID := registerAndLogin(t, r, "seller")
	buyerToken, buyerID := registerAndLogin(t, r, "buyer")
	productID := createTestBox(t, r, sellerToken, 59.9)

	// 冒用他人 buyer_id
	w, _ := doJSON(t, r, http.MethodPost, "/api/orders", gin.H{
		"buyer_id": sellerID, "seller_id": sellerID, "product_id": productID, "price": 59.9,
	}, buyerToken)
	if w.Code != http.StatusForbidden {
		t.Errorf("buyer_id mismatch: expected 403, got %d", w.Code)
	}

	// 价格与服务端不一致
	w, _ = doJSON(t, r, http.MethodPost, "/api/orders", gin.H{
		"buyer_id": buyerID, "seller_id": sellerID, "product_id": productID, "price": 0.01,
	}, buyerToken)
	if w.Code != http.StatusBadRequest {
		t.Errorf("price mismatch: expected 400, got %d", w.Code)
	}

	// 商品不存在
	w, _ = doJSON(t, r, http.MethodPost, "/api/orders", gin.H{
		"buyer_id": buyerID, "seller_id": sellerID, "product_id": 99999, "price": 59.9,
	}, buyerToken)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing product: expected 404, got %d", w.Code)
	}

	// 买空后继续买
	for i := 0; i < 4; i++ {
		w, resp := doJSON(t, r, http.MethodPost, "/api/orders", gin.H{
			"buyer_id": buyerID, "seller_id": sellerID, "product_id": productID, "price": 59.9,
		}, buyerToken)
		if w.Code != http.StatusCreated {
			t.Fatalf("purchase %d: status %d body %v", i, w.Code, resp)
		}
	}
	w, resp := doJSON(t, r, http.MethodPost, "/api/orders", gin.H{
		"buyer_id": buyerID, "seller_id": sellerID, "product_id": productID, "price": 59.9,
	}, buyerToken)
	if w.Code != http.StatusBadRequest {
		t.Errorf("sold out: expected 400, got %d body %v", w.Code, resp)
	}
}

func TestDeleteProductOwnership(t *testing.T) {
	r, db, _ := newTestRouter(t)
	sellerToken, _ := registerAndLogin(t, r, "seller")
	otherToken, _ := registerAndLogin(t, r, "other")
	productID := createTestBox(t, r, sellerToken, 9.9)

	// 非本人删除与不存在同样 404
	w, _ := doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/products/%d", productID), nil, otherToken)
	if w.Code != http.StatusNotFound {
		t.Errorf("delete by non-owner: expected 404, got %d", w.Code)
	}

	w, _ = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/products/%d", productID), nil, sellerToken)
	if w.Code != http.StatusOK {
		t.Errorf("delete by owner: expected 200, got %d", w.Code)
	}

	var subCount int64
	if err := db.Model(&model.SubItem{}).Where("product_id = ?", productID).Count(&subCount).Error; err != nil {
		t.Fatal(err)
	}
	if subCount != 0 {
		t.Errorf("expected cascading sub item delete, %d left", subCount)
	}
}

func TestCommunity(t *testing.T) {
	r, _, _ := newTestRouter(t)
	token, _ := registerAndLogin(t, r, "poster")

	w, _ := doJSON(t, r, http.MethodPost, "/api/community/posts", gin.H{
		"content": "抽到隐藏款了！", "image_url": "/uploads/win.png",
	}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("create post: status %d", w.Code)
	}
	w, _ = doJSON(t, r, http.MethodPost, "/api/community/posts", gin.H{"content": "   "}, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("blank post: expected 400, got %d", w.Code)
	}

	w, resp := doJSON(t, r, http.MethodGet, "/api/community/posts", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("list posts: status %d", w.Code)
	}
	posts := resp["data"].(map[string]interface{})["posts"].([]interface{})
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}
	if posts[0].(map[string]interface{})["username"] != "poster" {
		t.Errorf("post row missing username: %v", posts[0])
	}

	// Redis 不可用时滚动条降级为空列表而不是 500
	w, resp = doJSON(t, r, http.MethodGet, "/api/community/rewards", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("recent rewards: status %d", w.Code)
	}
	if entries := resp["data"].([]interface{}); len(entries) != 0 {
		t.Errorf("expected empty reward feed, got %v", entries)
	}
}
