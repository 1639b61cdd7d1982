package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sjsage522/shopcompare/internal/assistant"
	"sjsage522/shopcompare/internal/cart"
	"sjsage522/shopcompare/internal/intent"
	"sjsage522/shopcompare/internal/optimizer"
	"sjsage522/shopcompare/internal/product"
	"sjsage522/shopcompare/internal/search"
	"sjsage522/shopcompare/pkg/errors"
)

// Searcher is the search orchestrator as seen by the handlers
type Searcher interface {
	Search(ctx context.Context, req search.Request) (*search.Response, error)
	Platforms() []search.PlatformInfo
	ProductDetail(ctx context.Context, platform, id, pageURL string) (*product.Product, error)
}

// Carts is the cart service as seen by the handlers
type Carts interface {
	Create(ctx context.Context, owner cart.Owner) (*cart.Cart, error)
	Get(ctx context.Context, id string) (*cart.Cart, error)
	GetOrCreateForUser(ctx context.Context, userID string) (*cart.Cart, error)
	GetOrCreateForSession(ctx context.Context, sessionID string) (*cart.Cart, error)
	AddItem(ctx context.Context, id string, p product.Product, quantity int, platform product.Platform) (*cart.Cart, error)
	RemoveItem(ctx context.Context, id, itemID string) (*cart.Cart, error)
	UpdateQuantity(ctx context.Context, id, itemID string, quantity int) (*cart.Cart, error)
	Clear(ctx context.Context, id string) (*cart.Cart, error)
	Delete(ctx context.Context, id string) error
	Summary(ctx context.Context, id string) (cart.Summary, error)
}

var _ Carts = (*cart.Service)(nil)
var _ Searcher = (*search.Service)(nil)

// Handler serves the HTTP API
type Handler struct {
	search    Searcher
	carts     Carts
	extractor intent.Extractor
	assistant *assistant.Assistant
	version   string
	started   time.Time
}

// NewHandler builds the handlers. A nil extractor uses keyword matching.
func NewHandler(s Searcher, c Carts, x intent.Extractor, version string) *Handler {
	if x == nil {
		x = intent.NewKeywordExtractor()
	}
	return &Handler{
		search:    s,
		carts:     c,
		extractor: x,
		assistant: assistant.New(s, c, x),
		version:   version,
		started:   time.Now(),
	}
}

// cartView is a cart with its derived totals
type cartView struct {
	*cart.Cart
	Summary cart.Summary `json:"summary"`
}

func viewOf(c *cart.Cart) cartView {
	return cartView{Cart: c, Summary: c.Summary()}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"version":        h.version,
		"uptime_seconds": int(time.Since(h.started).Seconds()),
	}, "")
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req search.Request
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := h.search.Search(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, resp, resp.Message)
}

func (h *Handler) Platforms(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, h.search.Platforms(), "")
}

func (h *Handler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	p, err := h.search.ProductDetail(r.Context(),
		chi.URLParam(r, "platform"),
		chi.URLParam(r, "productID"),
		r.URL.Query().Get("url"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, p, "")
}

type createCartRequest struct {
	UserID    string `json:"user_id,omitempty" validate:"max=128"`
	SessionID string `json:"session_id,omitempty" validate:"max=128"`
}

// CreateCart returns the owner's existing cart when one is named, else a new cart
func (h *Handler) CreateCart(w http.ResponseWriter, r *http.Request) {
	var req createCartRequest
	if err := decodeOptionalJSONBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var (
		c   *cart.Cart
		err error
	)
	switch {
	case req.UserID != "":
		c, err = h.carts.GetOrCreateForUser(r.Context(), req.UserID)
	case req.SessionID != "":
		c, err = h.carts.GetOrCreateForSession(r.Context(), req.SessionID)
	default:
		c, err = h.carts.Create(r.Context(), cart.Owner{})
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, viewOf(c), "Cart ready")
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Get(r.Context(), chi.URLParam(r, "cartID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, viewOf(c), "")
}

func (h *Handler) DeleteCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Delete(r.Context(), chi.URLParam(r, "cartID")); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil, "Cart deleted")
}

func (h *Handler) CartSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.carts.Summary(r.Context(), chi.URLParam(r, "cartID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, s, "Cart summary retrieved successfully")
}

type addItemRequest struct {
	Product  product.Product `json:"product"`
	Quantity *int            `json:"quantity,omitempty"`
	Platform string          `json:"platform,omitempty"`
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	var platform product.Platform
	if req.Platform != "" {
		p, err := product.ParsePlatform(req.Platform)
		if err != nil {
			writeError(w, r, errors.NewValidation("", err.Error()))
			return
		}
		platform = p
	}

	c, err := h.carts.AddItem(r.Context(), chi.URLParam(r, "cartID"), req.Product, qty, platform)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, viewOf(c), "Item added to cart")
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// UpdateItem sets a quantity; zero or less removes the item
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req updateQuantityRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.carts.UpdateQuantity(r.Context(),
		chi.URLParam(r, "cartID"), chi.URLParam(r, "itemID"), *req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, viewOf(c), "Item quantity updated")
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.RemoveItem(r.Context(), chi.URLParam(r, "cartID"), chi.URLParam(r, "itemID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, viewOf(c), "Item removed from cart")
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Clear(r.Context(), chi.URLParam(r, "cartID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, viewOf(c), "Cart cleared")
}

func (h *Handler) OptimizeCart(w http.ResponseWriter, r *http.Request) {
	var req optimizer.Request
	if err := decodeOptionalJSONBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.carts.Get(r.Context(), chi.URLParam(r, "cartID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, ok := optimizer.Optimize(c, req)
	if !ok {
		writeError(w, r, errors.NewNotFound("Cart not found or empty", nil))
		return
	}
	writeSuccess(w, http.StatusOK, res, "Cart optimized successfully")
}

type queryRequest struct {
	Query string `json:"query" validate:"required,max=500"`
}

// ParseQuery reports the structured intent of a free-form query
func (h *Handler) ParseQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	parsed, err := h.extractor.Extract(r.Context(), req.Query)
	if err != nil {
		parsed = intent.Fallback(req.Query)
	}
	writeSuccess(w, http.StatusOK, parsed, "Query parsed successfully")
}

func (h *Handler) ExtractKeywords(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	keywords := intent.Keywords(req.Query)
	writeSuccess(w, http.StatusOK, map[string]any{
		"keywords": keywords,
		"count":    len(keywords),
	}, "Keywords extracted successfully")
}

// Interact runs one conversational turn. A turn with nothing to act on is
// still a 200, reported with success false.
func (h *Handler) Interact(w http.ResponseWriter, r *http.Request) {
	var req assistant.Request
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reply, err := h.assistant.Interact(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Success: reply.OK, Data: reply, Message: reply.Message})
}
