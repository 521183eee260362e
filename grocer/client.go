package grocer

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 10 * time.Second

	// Retry policy for transient failures at the platform boundary.
	retryCount    = 2 // attempts after the first, 3 total
	retryBaseWait = 200 * time.Millisecond
	retryMaxWait  = 2 * time.Second

	// The platform allows 10 req/s per client; burst covers one full
	// matching pass over a typical list.
	requestsPerSecond = 10
	requestBurst      = 20
)

// ClientOpts configures a platform client. BaseURL is required.
// AuthToken is optional; anonymous clients can search and create carts
// but get no preference persistence on the platform side.
type ClientOpts struct {
	BaseURL   string
	AuthToken string
}

// Client talks to the external commerce platform. It owns transport
// concerns only: auth, timeouts, retry and rate limiting. Interpretation
// of results (empty candidate lists, confidence thresholds) belongs to
// the checkout package.
type Client struct {
	httpClient *resty.Client
	limiter    *rate.Limiter
	authToken  string
}

// NewClient creates a platform client.
func NewClient(opts ClientOpts) *Client {
	c := Client{
		authToken: opts.AuthToken,
		limiter:   rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
	}
	c.httpClient = resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(defaultTimeout).
		SetRetryCount(retryCount).
		SetRetryWaitTime(retryBaseWait).
		SetRetryMaxWaitTime(retryMaxWait).
		AddRetryCondition(func(res *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return res.StatusCode() >= 500
		}).
		SetHeader("Accept", "application/json")

	return &c
}

func (c *Client) req(ctx context.Context, result any) *resty.Request {
	request := c.httpClient.NewRequest().SetContext(ctx)
	if c.authToken != "" {
		request.SetHeader("Authorization", "Bearer "+c.authToken)
	}
	if result != nil {
		request.SetResult(result)
	}
	return request
}

// GetRetailers lists retailers serving the given zip code.
func (c *Client) GetRetailers(ctx context.Context, zipCode string) ([]Retailer, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	result := &RetailersResponse{}
	_, err := handleError(c.req(ctx, result).
		SetQueryParam("zip", zipCode).
		Get("/retailers"))
	if err != nil {
		return nil, err
	}

	log.Debug().Str("zip", zipCode).Int("count", len(result.Retailers)).Msg("fetched retailers")
	return result.Retailers, nil
}

// SearchProducts queries the retailer catalog for candidates matching a
// cart item. The returned slice preserves the platform's order
// (confidence descending, ties in server order) and may be empty.
func (c *Client) SearchProducts(ctx context.Context, req SearchRequest) ([]Product, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	result := &SearchResponse{}
	_, err := handleError(c.req(ctx, result).
		SetBody(req).
		Post("/search"))
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("query", req.Query).
		Str("retailerId", req.RetailerID).
		Int("candidates", len(result.Products)).
		Msg("product search")
	return result.Products, nil
}

// CreateCart submits the assembled cart to the platform. A non-nil
// response with Success=false means the platform rejected the cart at
// the application level; callers must check both.
func (c *Client) CreateCart(ctx context.Context, req CreateCartRequest) (*CreateCartResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	result := &CreateCartResponse{}
	_, err := handleError(c.req(ctx, result).
		SetBody(req).
		Post("/cart/create"))
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("retailerId", req.RetailerID).
		Int("items", len(req.Items)).
		Bool("success", result.Success).
		Str("cartId", result.CartID).
		Msg("cart creation")
	return result, nil
}

// handleError is a generic error handler for failing responses (>399
// status code). Without this, failing responses would have nil error.
func handleError(res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return res, err
	}
	if res.IsError() {
		return res, fmt.Errorf("request failed: %s %s (status: %d)", res.Request.Method, res.Request.URL, res.StatusCode())
	}

	return res, nil
}
