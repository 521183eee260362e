package parse

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/cartify/cartify/checkout"
)

const geminiModel = "gemini-2.5-flash-lite"

// Gemini pricing (per million tokens)
const (
	geminiInputPricePerMillion  = 0.075
	geminiOutputPricePerMillion = 0.30
)

const listExtractionPrompt = `Extract the grocery items from the following text. The text may be a
shopping list, a dictated message, or a loose description of what
someone wants to buy.

Respond with a JSON array where each element has these fields:
- name: the product name, cleaned up (e.g. "chicken breast", not "some chicken breasts")
- quantity: how many, as a number (default 1 if unstated)
- unit: the unit of measure ("lb", "oz", "each", "dozen", "bag", etc.; default "each")
- category: one of "produce", "meat", "seafood", "dairy", "bakery", "pantry", "beverages", "frozen", or "" if unclear

Example response:
[{"name": "chicken breast", "quantity": 2, "unit": "lb", "category": "meat"}, {"name": "milk", "quantity": 1, "unit": "gallon", "category": "dairy"}]

Do not invent items that are not in the text.
Respond ONLY with the JSON array, no markdown or other text.

Text:
%s`

// GeminiParser uses Google's Gemini API to extract cart items from
// messy free text that the line parser cannot handle.
type GeminiParser struct {
	client *genai.Client
}

var _ ListParser = (*GeminiParser)(nil)

// NewGeminiParser creates a new Gemini-based list parser.
// It uses the GEMINI_API_KEY environment variable for authentication.
func NewGeminiParser(ctx context.Context) (*GeminiParser, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: os.Getenv("GEMINI_API_KEY"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiParser{client: client}, nil
}

// Parse implements ListParser using Gemini.
func (g *GeminiParser) Parse(ctx context.Context, text string) ([]checkout.CartItem, error) {
	prompt := fmt.Sprintf(listExtractionPrompt, text)

	result, err := g.client.Models.GenerateContent(ctx, geminiModel, []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(prompt)}, genai.RoleUser),
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini list extraction failed: %w", err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from gemini")
	}

	items, err := parseExtractedItems(result.Text())
	if err != nil {
		return nil, err
	}

	// Log usage and cost
	if result.UsageMetadata != nil {
		cost := calculateGeminiCost(
			int64(result.UsageMetadata.PromptTokenCount),
			int64(result.UsageMetadata.CandidatesTokenCount),
		)
		log.Info().
			Str("model", geminiModel).
			Int("inputTokens", int(result.UsageMetadata.PromptTokenCount)).
			Int("outputTokens", int(result.UsageMetadata.CandidatesTokenCount)).
			Float64("costUSD", cost).
			Int("items", len(items)).
			Msg("list extraction llm call")
	}

	return items, nil
}

func calculateGeminiCost(inputTokens, outputTokens int64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * geminiInputPricePerMillion
	outputCost := float64(outputTokens) / 1_000_000 * geminiOutputPricePerMillion
	return inputCost + outputCost
}

// extractJSONArray extracts a JSON array from text that may contain
// markdown code blocks or other formatting.
func extractJSONArray(text string) (string, error) {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON array found in response: %s", text)
	}
	return text[start : end+1], nil
}

func parseExtractedItems(text string) ([]checkout.CartItem, error) {
	jsonStr, err := extractJSONArray(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}

	var raw []struct {
		Name     string  `json:"name"`
		Quantity float64 `json:"quantity"`
		Unit     string  `json:"unit"`
		Category string  `json:"category"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w (response: %s)", err, jsonStr)
	}

	var items []checkout.CartItem
	for _, r := range raw {
		if strings.TrimSpace(r.Name) == "" {
			continue
		}
		if r.Quantity <= 0 {
			r.Quantity = 1
		}
		if r.Unit == "" {
			r.Unit = "each"
		}
		items = append(items, checkout.CartItem{
			ID:          fmt.Sprintf("item-%d", len(items)+1),
			ProductName: strings.TrimSpace(r.Name),
			Quantity:    r.Quantity,
			Unit:        r.Unit,
			Category:    r.Category,
		})
	}
	return items, nil
}
