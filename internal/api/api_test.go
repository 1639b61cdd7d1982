package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/shopcompare/internal/cart"
	"sjsage522/shopcompare/internal/cascade"
	"sjsage522/shopcompare/internal/intent"
	"sjsage522/shopcompare/internal/product"
	"sjsage522/shopcompare/internal/search"
	"sjsage522/shopcompare/pkg/errors"
)

// MockSearcher returns canned search results
type MockSearcher struct {
	response *search.Response
	err      error
	lastReq  search.Request
	detail   *product.Product
}

var _ Searcher = (*MockSearcher)(nil)

func (m *MockSearcher) Search(_ context.Context, req search.Request) (*search.Response, error) {
	m.lastReq = req
	return m.response, m.err
}

func (m *MockSearcher) Platforms() []search.PlatformInfo {
	return []search.PlatformInfo{{Name: product.Amazon, Title: "Amazon", Type: product.Amazon.Type(), Default: true, Live: true}}
}

func (m *MockSearcher) ProductDetail(_ context.Context, platform, id, _ string) (*product.Product, error) {
	if m.detail == nil || platform != m.detail.Platform.String() || id != m.detail.PlatformProductID {
		return nil, errors.NewNotFound("product not found", nil)
	}
	return m.detail, nil
}

func listing(platform product.Platform, id, name string, price float64, delivery string) product.Product {
	p := product.Product{
		PlatformProductID: id,
		Name:              name,
		Price:             product.Price{Current: price},
		Delivery:          product.Delivery{Time: delivery},
	}
	p.Tag(platform, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	return p
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

type fixture struct {
	server   *httptest.Server
	searcher *MockSearcher
}

func newFixture(t *testing.T) *fixture {
	searcher := &MockSearcher{}
	h := NewHandler(searcher, cart.NewService(cart.NewMemoryStore()), intent.NewKeywordExtractor(), "test")
	srv := httptest.NewServer(NewRouter(h, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "search_duration_seconds 0\n")
	})))
	t.Cleanup(srv.Close)
	return &fixture{server: srv, searcher: searcher}
}

func (f *fixture) do(t *testing.T, method, path string, body any) (int, envelope) {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, f.server.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	status, env := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
	data := decodeData[map[string]any](t, env)
	assert.Equal(t, "healthy", data["status"])
	assert.Equal(t, "test", data["version"])
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	f.searcher.response = &search.Response{
		Query:        "milk",
		Products:     []product.Product{listing(product.Blinkit, "m1", "Milk", 68, "10 mins")},
		TotalResults: 1,
		DataSource:   cascade.TierReal,
		Message:      "Found 1 products across 1 platforms",
	}

	status, env := f.do(t, http.MethodPost, "/search", map[string]any{"query": "milk", "limit": 5})
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
	assert.Equal(t, "Found 1 products across 1 platforms", env.Message)
	assert.Equal(t, "milk", f.searcher.lastReq.Query)
	assert.Equal(t, 5, f.searcher.lastReq.Limit)

	resp := decodeData[search.Response](t, env)
	require.Len(t, resp.Products, 1)
	assert.Equal(t, 68.0, resp.Products[0].Price.Current)
}

func TestSearchErrors(t *testing.T) {
	f := newFixture(t)

	status, env := f.do(t, http.MethodPost, "/search", "{not json")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "invalid request body")

	status, _ = f.do(t, http.MethodPost, "/search", map[string]any{"query": "milk", "unknown": 1})
	assert.Equal(t, http.StatusBadRequest, status)

	f.searcher.err = errors.NewValidation("", "query is required")
	status, env = f.do(t, http.MethodPost, "/search", map[string]any{"query": "   "})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "query is required", env.Error)
}

func TestPlatformsAndMetrics(t *testing.T) {
	f := newFixture(t)
	status, env := f.do(t, http.MethodGet, "/platforms", nil)
	assert.Equal(t, http.StatusOK, status)
	infos := decodeData[[]search.PlatformInfo](t, env)
	require.Len(t, infos, 1)
	assert.Equal(t, product.Amazon, infos[0].Name)

	resp, err := http.Get(f.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "search_duration_seconds")
}

func TestProductDetail(t *testing.T) {
	f := newFixture(t)
	p := listing(product.Amazon, "B01", "Kettle", 999, "2 days")
	f.searcher.detail = &p

	status, env := f.do(t, http.MethodGet, "/products/amazon/B01", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Kettle", decodeData[product.Product](t, env).Name)

	status, _ = f.do(t, http.MethodGet, "/products/amazon/nope", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCartFlow(t *testing.T) {
	f := newFixture(t)

	status, env := f.do(t, http.MethodPost, "/carts", nil)
	require.Equal(t, http.StatusCreated, status)
	created := decodeData[cartView](t, env)
	require.NotEmpty(t, created.ID)
	base := "/carts/" + created.ID

	expensive := listing(product.Amazon, "a1", "Headphones", 500, "2 days")
	cheap := listing(product.Flipkart, "f1", "Headphones", 300, "4 days")

	status, _ = f.do(t, http.MethodPost, base+"/items", map[string]any{"product": expensive, "quantity": 1})
	require.Equal(t, http.StatusOK, status)
	status, env = f.do(t, http.MethodPost, base+"/items", map[string]any{"product": cheap})
	require.Equal(t, http.StatusOK, status)

	c := decodeData[cartView](t, env)
	require.Len(t, c.Items, 2)
	assert.Equal(t, 800.0, c.Summary.TotalPrice)
	assert.Equal(t, 1, c.Items[1].Quantity)

	status, env = f.do(t, http.MethodPost, base+"/optimize", map[string]any{"mode": "best_price"})
	require.Equal(t, http.StatusOK, status)
	res := decodeData[map[string]any](t, env)
	assert.Equal(t, 300.0, res["optimized_total"])
	assert.Equal(t, 500.0, res["savings"])

	itemID := c.Items[0].ID
	status, env = f.do(t, http.MethodPatch, base+"/items/"+itemID, map[string]any{"quantity": 3})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3, decodeData[cartView](t, env).Items[0].Quantity)

	status, env = f.do(t, http.MethodGet, base+"/summary", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1800.0, decodeData[cart.Summary](t, env).TotalPrice)

	status, _ = f.do(t, http.MethodPatch, base+"/items/"+itemID, map[string]any{"quantity": 0})
	require.Equal(t, http.StatusOK, status)
	status, _ = f.do(t, http.MethodDelete, base+"/items/"+itemID, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, env = f.do(t, http.MethodDelete, base+"/items", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decodeData[cartView](t, env).Items)

	status, env = f.do(t, http.MethodPost, base+"/optimize", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Cart not found or empty", env.Error)

	status, _ = f.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = f.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCartOwnerReuse(t *testing.T) {
	f := newFixture(t)
	_, env := f.do(t, http.MethodPost, "/carts", map[string]any{"user_id": "u1"})
	first := decodeData[cartView](t, env)
	_, env = f.do(t, http.MethodPost, "/carts", map[string]any{"user_id": "u1"})
	second := decodeData[cartView](t, env)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "u1", second.UserID)
}

func TestCartValidationAndNotFound(t *testing.T) {
	f := newFixture(t)
	milk := listing(product.Blinkit, "m1", "Milk", 68, "10 mins")

	status, env := f.do(t, http.MethodGet, "/carts/missing", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "cart not found", env.Error)

	status, _ = f.do(t, http.MethodPost, "/carts/missing/items", map[string]any{"product": milk})
	assert.Equal(t, http.StatusNotFound, status)

	_, env = f.do(t, http.MethodPost, "/carts", nil)
	id := decodeData[cartView](t, env).ID

	status, _ = f.do(t, http.MethodPost, "/carts/"+id+"/items", map[string]any{"product": milk, "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = f.do(t, http.MethodPost, "/carts/"+id+"/items", map[string]any{"product": milk, "platform": "ebay"})
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = f.do(t, http.MethodPatch, "/carts/"+id+"/items/x", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = f.do(t, http.MethodPatch, "/carts/"+id+"/items/x", map[string]any{"quantity": 2})
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = f.do(t, http.MethodPost, "/carts/"+id+"/optimize", map[string]any{"mode": "random"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestParseQuery(t *testing.T) {
	f := newFixture(t)
	status, env := f.do(t, http.MethodPost, "/query/parse", map[string]any{"query": "I need 2 milk under 100"})
	require.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
	assert.Equal(t, "Query parsed successfully", env.Message)

	parsed := decodeData[intent.ParsedQuery](t, env)
	require.Len(t, parsed.Products, 1)
	assert.Equal(t, "milk", parsed.Products[0].Name)
	assert.Equal(t, 2, parsed.Products[0].Quantity)
	require.NotNil(t, parsed.Constraints.TotalBudget)
	assert.Equal(t, 100.0, *parsed.Constraints.TotalBudget)
	assert.Equal(t, "I need 2 milk under 100", parsed.OriginalQuery)

	status, env = f.do(t, http.MethodPost, "/query/parse", map[string]any{"query": ""})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, env.Success)
}

func TestExtractKeywords(t *testing.T) {
	f := newFixture(t)
	status, env := f.do(t, http.MethodPost, "/query/keywords", map[string]any{"query": "Please add Amul butter to cart"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Keywords extracted successfully", env.Message)

	data := decodeData[struct {
		Keywords []string `json:"keywords"`
		Count    int      `json:"count"`
	}](t, env)
	assert.Equal(t, []string{"amul", "butter"}, data.Keywords)
	assert.Equal(t, 2, data.Count)

	status, _ = f.do(t, http.MethodPost, "/query/keywords", `{"query":"milk","extra":1}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

type robotReply struct {
	Action   string            `json:"action"`
	Message  string            `json:"message"`
	CartID   string            `json:"cart_id"`
	Products []product.Product `json:"products"`
}

func TestRobotInteract(t *testing.T) {
	f := newFixture(t)
	f.searcher.response = &search.Response{
		Query: "milk",
		Products: []product.Product{
			listing(product.Blinkit, "b1", "Amul Taaza Milk 1L", 68, "10 mins"),
			listing(product.Zepto, "z1", "Mother Dairy Milk 500ml", 32, "12 mins"),
		},
	}

	status, env := f.do(t, http.MethodPost, "/robot/interact", map[string]any{"user_message": "I need milk"})
	require.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
	reply := decodeData[robotReply](t, env)
	assert.Equal(t, "select_product", reply.Action)
	assert.Equal(t, "Please select which product to add to your cart:", env.Message)
	assert.Len(t, reply.Products, 2)

	status, env = f.do(t, http.MethodPost, "/robot/interact", map[string]any{
		"user_message":      "I need milk",
		"last_action":       "select_product",
		"product_selection": 1,
	})
	require.Equal(t, http.StatusOK, status)
	reply = decodeData[robotReply](t, env)
	assert.Equal(t, "added_to_cart", reply.Action)
	require.NotEmpty(t, reply.CartID)

	status, env = f.do(t, http.MethodGet, "/carts/"+reply.CartID, nil)
	require.Equal(t, http.StatusOK, status)
	c := decodeData[cart.Cart](t, env)
	require.Len(t, c.Items, 1)
	assert.Equal(t, "z1", c.Items[0].Product.PlatformProductID)

	// out of range selection is answered, not failed
	status, env = f.do(t, http.MethodPost, "/robot/interact", map[string]any{
		"user_message":      "I need milk",
		"product_selection": 5,
	})
	require.Equal(t, http.StatusOK, status)
	assert.False(t, env.Success)
	assert.Equal(t, "Invalid product selection.", env.Message)
	assert.Equal(t, "invalid_selection", decodeData[robotReply](t, env).Action)
}

func TestRobotInteractVagueAndDirect(t *testing.T) {
	f := newFixture(t)

	status, env := f.do(t, http.MethodPost, "/robot/interact", map[string]any{"user_message": "buy anything"})
	require.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
	assert.Equal(t, "confirm_cheapest", decodeData[robotReply](t, env).Action)

	kettle := listing(product.Amazon, "k1", "Electric Kettle", 1299, "2 days")
	status, env = f.do(t, http.MethodPost, "/robot/interact", map[string]any{
		"selected_product": kettle,
		"quantity":         2,
	})
	require.Equal(t, http.StatusOK, status)
	reply := decodeData[robotReply](t, env)
	assert.Equal(t, "added_to_cart", reply.Action)
	assert.Equal(t, "Added 'Electric Kettle' to your cart.", env.Message)

	status, env = f.do(t, http.MethodGet, "/carts/"+reply.CartID+"/summary", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, decodeData[cart.Summary](t, env).TotalItems)

	status, env = f.do(t, http.MethodPost, "/robot/interact", map[string]any{"user_message": ""})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, env.Success)

	status, _ = f.do(t, http.MethodPost, "/robot/interact", map[string]any{"user_message": "milk", "quantity": 500})
	assert.Equal(t, http.StatusBadRequest, status)
}
