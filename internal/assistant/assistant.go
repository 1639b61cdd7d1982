// Package assistant runs the conversational shopping flow: read a message,
// search, let the user pick a product and put it in a cart.
package assistant

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"sjsage522/shopcompare/internal/cart"
	"sjsage522/shopcompare/internal/intent"
	"sjsage522/shopcompare/internal/product"
	"sjsage522/shopcompare/internal/search"
	"sjsage522/shopcompare/logger"
	"sjsage522/shopcompare/pkg/errors"
	"sjsage522/shopcompare/pkg/validate"
)

// Action tells the client what the assistant did and what it expects next
type Action string

const (
	ActionAddedToCart      Action = "added_to_cart"
	ActionConfirmCheapest  Action = "confirm_cheapest"
	ActionShowResults      Action = "show_search_results"
	ActionSelectProduct    Action = "select_product"
	ActionNoResults        Action = "no_results"
	ActionInvalidSelection Action = "invalid_selection"
)

// candidateLimit bounds the products offered for selection
const candidateLimit = 5

var browseWords = []string{"check", "show", "search", "find", "look for"}

// Searcher runs product searches
type Searcher interface {
	Search(ctx context.Context, req search.Request) (*search.Response, error)
}

// Carts is the part of the cart service the assistant writes to
type Carts interface {
	Create(ctx context.Context, owner cart.Owner) (*cart.Cart, error)
	Get(ctx context.Context, id string) (*cart.Cart, error)
	AddItem(ctx context.Context, id string, p product.Product, quantity int, platform product.Platform) (*cart.Cart, error)
}

var _ Searcher = (*search.Service)(nil)
var _ Carts = (*cart.Service)(nil)

// Request is one turn of the conversation. The client echoes back the previous
// action, and the product index or the full product once the user picked one.
type Request struct {
	Message         string           `json:"user_message" validate:"max=500"`
	CartID          string           `json:"cart_id,omitempty" validate:"max=128"`
	LastAction      Action           `json:"last_action,omitempty"`
	Platforms       []string         `json:"platforms,omitempty"`
	Selection       *int             `json:"product_selection,omitempty"`
	SelectedProduct *product.Product `json:"selected_product,omitempty"`
	Quantity        *int             `json:"quantity,omitempty" validate:"omitempty,gte=1,lte=100"`
}

// Reply is the assistant's answer. OK is false when the turn found nothing to act on.
type Reply struct {
	OK       bool              `json:"-"`
	Action   Action            `json:"action"`
	Message  string            `json:"message"`
	CartID   string            `json:"cart_id,omitempty"`
	Products []product.Product `json:"products"`
}

// Assistant drives the conversation over search and carts
type Assistant struct {
	search    Searcher
	carts     Carts
	extractor intent.Extractor
	log       *logger.Logger
}

// New creates an assistant. A nil extractor uses keyword matching.
func New(s Searcher, c Carts, x intent.Extractor) *Assistant {
	if x == nil {
		x = intent.NewKeywordExtractor()
	}
	return &Assistant{search: s, carts: c, extractor: x, log: logger.ForComponent("assistant")}
}

// Interact handles one turn. Errors are validation failures or cart store failures;
// an empty search is a reply, not an error.
func (a *Assistant) Interact(ctx context.Context, req Request) (*Reply, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	req.Message = strings.TrimSpace(req.Message)

	if req.SelectedProduct != nil {
		qty := 1
		if req.Quantity != nil {
			qty = *req.Quantity
		}
		return a.add(ctx, req.CartID, *req.SelectedProduct, qty)
	}
	if req.Message == "" {
		return nil, errors.NewValidation("", "user_message is required")
	}

	parsed, err := a.extractor.Extract(ctx, req.Message)
	if err != nil {
		a.log.Debug().Err(err).Msg("Extraction failed, reading the message as a product")
		parsed = intent.Fallback(req.Message)
	}
	intents := parsed.Products
	// answering the cheapest-product question with a name names the product
	if len(intents) == 0 && req.LastAction == ActionConfirmCheapest {
		intents = []intent.ProductIntent{{Name: req.Message, Quantity: 1}}
	}
	if len(intents) == 0 {
		return &Reply{
			OK:       true,
			Action:   ActionConfirmCheapest,
			Message:  "You didn't specify a product. Should I add the cheapest available product to your cart?",
			Products: []product.Product{},
		}, nil
	}
	wanted := intents[0]

	if wantsBrowse(req.Message) {
		resp, err := a.search.Search(ctx, search.Request{Query: wanted.Name, Limit: candidateLimit, Platforms: req.Platforms})
		if err != nil {
			return nil, err
		}
		return &Reply{
			OK:       true,
			Action:   ActionShowResults,
			Message:  fmt.Sprintf("Here are the results for '%s':", wanted.Name),
			Products: resp.Products,
		}, nil
	}

	resp, err := a.search.Search(ctx, search.Request{
		Query:     wanted.Name,
		Limit:     candidateLimit,
		Platforms: req.Platforms,
		MaxPrice:  wanted.MaxPrice,
		MinRating: wanted.MinRating,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Products) == 0 {
		return &Reply{
			Action:   ActionNoResults,
			Message:  fmt.Sprintf("No products found for '%s'.", wanted.Name),
			Products: []product.Product{},
		}, nil
	}
	candidates := matching(resp.Products, wanted.Name)

	if req.Selection == nil {
		return &Reply{
			OK:       true,
			Action:   ActionSelectProduct,
			Message:  "Please select which product to add to your cart:",
			Products: candidates,
		}, nil
	}
	i := *req.Selection
	if i < 0 || i >= len(candidates) {
		return &Reply{
			Action:   ActionInvalidSelection,
			Message:  "Invalid product selection.",
			Products: candidates,
		}, nil
	}
	return a.add(ctx, req.CartID, candidates[i], max(wanted.Quantity, 1))
}

func (a *Assistant) add(ctx context.Context, cartID string, p product.Product, qty int) (*Reply, error) {
	c, err := a.ensureCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if _, err := a.carts.AddItem(ctx, c.ID, p, qty, ""); err != nil {
		return nil, err
	}
	a.log.Info().Str("cart_id", c.ID).Str("product", p.Name).Int("quantity", qty).Msg("Added product for the user")
	return &Reply{
		OK:       true,
		Action:   ActionAddedToCart,
		Message:  fmt.Sprintf("Added '%s' to your cart.", p.Name),
		CartID:   c.ID,
		Products: []product.Product{p},
	}, nil
}

// ensureCart returns the named cart, or a new one when none is named or it is gone
func (a *Assistant) ensureCart(ctx context.Context, id string) (*cart.Cart, error) {
	if id != "" {
		c, err := a.carts.Get(ctx, id)
		if err == nil {
			return c, nil
		}
		if !stderrors.Is(err, cart.ErrCartNotFound) {
			return nil, err
		}
	}
	return a.carts.Create(ctx, cart.Owner{})
}

func wantsBrowse(message string) bool {
	lower := strings.ToLower(message)
	for _, w := range browseWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// matching keeps products whose name contains the wanted name, all of them when none does,
// capped at candidateLimit
func matching(products []product.Product, name string) []product.Product {
	want := strings.ToLower(name)
	var out []product.Product
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), want) {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		out = products
	}
	if len(out) > candidateLimit {
		out = out[:candidateLimit]
	}
	return append([]product.Product(nil), out...)
}
