package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Result 记录单次请求的 HTTP 结果，便于聚合统计。
type Result struct {
	Status int
	Body   string
	Err    error
}

// buyer 压测用的已登录买家。
type buyer struct {
	ID    uint
	Token string
}

func main() {
	baseURL := flag.String("base", "http://localhost:8080", "server base url")
	productID := flag.Uint("product", 1, "product id")
	sellerID := flag.Uint("seller", 1, "seller id")
	price := flag.String("price", "59.90", "listed price")
	stockCheck := flag.Bool("stock", true, "check remaining stock after test")

	// 超卖测试参数：N 个买家并发抢同一款盲盒
	nUsers := flag.Int("users", 50, "distinct buyers")
	concurrency := flag.Int("c", 20, "max concurrency")
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}

	// 先把买家注册并登录好，拿到各自的 token 再发并发请求。
	fmt.Printf("registering %d buyers...\n", *nUsers)
	buyers := make([]buyer, 0, *nUsers)
	for i := 0; i < *nUsers; i++ {
		b, err := registerAndLogin(client, *baseURL, i)
		if err != nil {
			panic(fmt.Sprintf("register buyer %d: %v", i, err))
		}
		buyers = append(buyers, b)
	}

	before := int64(-1)
	if *stockCheck {
		if v, err := getStock(client, *baseURL, *productID); err == nil {
			before = v
		}
	}

	// 不超卖测试：不同买家并发抢购
	fmt.Printf("start oversell test: product=%d buyers=%d concurrency=%d\n", *productID, *nUsers, *concurrency)
	results := runBuy(client, *baseURL, *productID, *sellerID, *price, buyers, *concurrency)
	printSummary("oversell", results)

	if *stockCheck {
		after, err := getStock(client, *baseURL, *productID)
		if err != nil {
			fmt.Println("stock check err:", err)
			return
		}
		success := 0
		for _, r := range results {
			if r.Err == nil && r.Status == http.StatusCreated {
				success++
			}
		}
		fmt.Printf("stock before=%d after=%d success=%d\n", before, after, success)
		// 成功数必须恰好等于消耗的库存，且库存不为负
		if after < 0 || (before >= 0 && before-after != int64(success)) {
			fmt.Println("OVERSELL DETECTED")
		} else {
			fmt.Println("no oversell")
		}
	}
}

func registerAndLogin(client *http.Client, baseURL string, idx int) (buyer, error) {
	suffix := fmt.Sprintf("%d-%d", time.Now().UnixNano(), idx)
	username := "loadtest-" + suffix
	reg := map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "loadtest-pass",
	}
	if err := doPOST(client, baseURL+"/api/register", reg, nil, nil); err != nil {
		return buyer{}, err
	}

	var out struct {
		Data struct {
			Token string `json:"token"`
			User  struct {
				ID uint `json:"id"`
			} `json:"user"`
		} `json:"data"`
	}
	login := map[string]string{"username": username, "password": "loadtest-pass"}
	if err := doPOST(client, baseURL+"/api/login", login, nil, &out); err != nil {
		return buyer{}, err
	}
	if out.Data.Token == "" || out.Data.User.ID == 0 {
		return buyer{}, fmt.Errorf("login response missing token/user")
	}
	return buyer{ID: out.Data.User.ID, Token: out.Data.Token}, nil
}

func runBuy(client *http.Client, baseURL string, productID, sellerID uint, price string, buyers []buyer, concurrency int) []Result {
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	results := make([]Result, len(buyers))

	for i := range buyers {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = buyOnce(client, baseURL, productID, sellerID, price, buyers[idx])
		}(i)
	}

	wg.Wait()
	return results
}

func buyOnce(client *http.Client, baseURL string, productID, sellerID uint, price string, b buyer) Result {
	body, _ := json.Marshal(map[string]any{
		"buyer_id":   b.ID,
		"seller_id":  sellerID,
		"product_id": productID,
		"price":      json.RawMessage(price),
	})
	httpReq, _ := http.NewRequest(http.MethodPost, baseURL+"/api/orders", bytes.NewReader(body))
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+b.Token)

	resp, err := client.Do(httpReq)
	if err != nil {
		return Result{Err: err}
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	return Result{Status: resp.StatusCode, Body: string(respBody)}
}

// printSummary 聚合输出不同状态码分布。
func printSummary(name string, results []Result) {
	count := map[int]int{}
	errCount := 0
	for _, r := range results {
		if r.Err != nil {
			errCount++
			continue
		}
		count[r.Status]++
	}
	fmt.Printf("[%s] http status summary:\n", name)
	for _, code := range []int{200, 201, 400, 404, 409, 429, 500} {
		if count[code] > 0 {
			fmt.Printf("  %d -> %d\n", code, count[code])
		}
	}
	if errCount > 0 {
		fmt.Printf("  errors -> %d\n", errCount)
	}
}

// doPOST 发送 POST 请求（支持附加请求头与响应解析）。
func doPOST(client *http.Client, url string, body any, headers map[string]string, out any) error {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req, _ := http.NewRequest(http.MethodPost, url, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("status=%d body=%s", resp.StatusCode, string(b))
	}
	if out != nil {
		return json.Unmarshal(b, out)
	}
	return nil
}

// getStock 查询当前剩余库存，用于压测后校验是否出现超卖。
func getStock(client *http.Client, baseURL string, productID uint) (int64, error) {
	url := fmt.Sprintf("%s/api/products/%d/stock", baseURL, productID)
	resp, err := client.Get(url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return 0, fmt.Errorf("status=%d body=%s", resp.StatusCode, string(b))
	}

	var out struct {
		Code int `json:"code"`
		Data struct {
			Stock int64 `json:"stock"`
		} `json:"data"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return 0, err
	}
	return out.Data.Stock, nil
}
