package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sjsage522/shopcompare/logger"
)

const systemPrompt = `You extract shopping intent. Reply with one JSON object and nothing else:
{"products":[{"product_name":"string","quantity":1,"category":"string","brand":"string","max_price":0,"min_rating":0,"specifications":{}}],
"constraints":{"total_budget":0,"min_rating":0,"delivery_preference":"fast|cheap|balanced","preferred_platforms":[],"location":"string"}}
Omit fields you cannot infer. Keep descriptive phrases as the product name ("black sock", "gaming laptop").
"laptop under 50k" means max_price 50000. "4+ rating" means min_rating 4.`

// LLMConfig configures the chat-completions collaborator
type LLMConfig struct {
	Endpoint    string // base URL, e.g. https://api.openai.com/v1
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// LLMExtractor asks an OpenAI-compatible endpoint to read the query
type LLMExtractor struct {
	cfg    LLMConfig
	client *http.Client
	log    *logger.Logger
}

// NewLLMExtractor creates an extractor for the configured endpoint
func NewLLMExtractor(cfg LLMConfig) *LLMExtractor {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-3.5-turbo"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &LLMExtractor{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    logger.ForComponent("intent"),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// wire form of the model answer; numbers may come back as zero for "unknown"
type llmAnswer struct {
	Products []struct {
		Name           string         `json:"product_name"`
		Quantity       int            `json:"quantity"`
		Category       string         `json:"category"`
		Brand          string         `json:"brand"`
		MaxPrice       float64        `json:"max_price"`
		MinRating      float64        `json:"min_rating"`
		Specifications map[string]any `json:"specifications"`
	} `json:"products"`
	Constraints struct {
		TotalBudget        float64  `json:"total_budget"`
		MinRating          float64  `json:"min_rating"`
		DeliveryPreference string   `json:"delivery_preference"`
		PreferredPlatforms []string `json:"preferred_platforms"`
		Location           string   `json:"location"`
	} `json:"constraints"`
}

// Extract implements Extractor
func (e *LLMExtractor) Extract(ctx context.Context, query string) (ParsedQuery, error) {
	content, err := e.complete(ctx, "Parse this shopping query: "+query)
	if err != nil {
		return ParsedQuery{}, err
	}
	pq, err := decodeAnswer(content, query)
	if err != nil {
		e.log.Warn().
			Err(err).
			Str("query", query).
			Msg("Intent response was not valid JSON")
		return ParsedQuery{}, err
	}
	return pq, nil
}

func (e *LLMExtractor) complete(ctx context.Context, prompt string) (string, error) {
	payload := chatRequest{
		Model: e.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: e.cfg.Temperature,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	endpoint := strings.TrimRight(e.cfg.Endpoint, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("chat request: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in chat response")
	}
	return result.Choices[0].Message.Content, nil
}

func decodeAnswer(content, query string) (ParsedQuery, error) {
	content = strings.TrimSpace(content)
	// models like to wrap JSON in a fenced block
	if start, end := strings.Index(content, "{"), strings.LastIndex(content, "}"); start >= 0 && end > start {
		content = content[start : end+1]
	}

	var ans llmAnswer
	if err := json.Unmarshal([]byte(content), &ans); err != nil {
		return ParsedQuery{}, fmt.Errorf("decode intent: %w", err)
	}

	pq := ParsedQuery{OriginalQuery: query, Confidence: 0.9}
	for _, p := range ans.Products {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			continue
		}
		pi := ProductIntent{
			Name:     name,
			Quantity: p.Quantity,
			Category: p.Category,
			Brand:    p.Brand,
		}
		if pi.Quantity < 1 {
			pi.Quantity = 1
		}
		if p.MaxPrice > 0 {
			pi.MaxPrice = floatPtr(p.MaxPrice)
		}
		if p.MinRating > 0 && p.MinRating <= 5 {
			pi.MinRating = floatPtr(p.MinRating)
		}
		if len(p.Specifications) > 0 {
			pi.Specifications = make(map[string]string, len(p.Specifications))
			for k, v := range p.Specifications {
				pi.Specifications[k] = fmt.Sprint(v)
			}
		}
		pq.Products = append(pq.Products, pi)
	}

	c := ans.Constraints
	if c.TotalBudget > 0 {
		pq.Constraints.TotalBudget = floatPtr(c.TotalBudget)
	}
	if c.MinRating > 0 && c.MinRating <= 5 {
		pq.Constraints.MinRating = floatPtr(c.MinRating)
	}
	switch pref := strings.ToLower(strings.TrimSpace(c.DeliveryPreference)); pref {
	case DeliveryFast, DeliveryCheap, DeliveryBalanced:
		pq.Constraints.DeliveryPreference = pref
	}
	pq.Constraints.PreferredPlatforms = c.PreferredPlatforms
	pq.Constraints.Location = c.Location
	return pq, nil
}
