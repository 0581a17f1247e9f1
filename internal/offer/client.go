package offer

import (
	"context"
	"encoding/json"

	"pricegap/internal/fetch"
	apperrors "pricegap/pkg/errors"
)

// Client fetches promotional offers from the batch offers endpoint.
type Client struct {
	endpoint  string
	fetchFunc func(ctx context.Context, url string, payload interface{}) (*fetch.Result, error)
}

// NewClient creates an offers client for the given endpoint.
func NewClient(fetcher *fetch.Fetcher, endpoint string) *Client {
	return &Client{
		endpoint:  endpoint,
		fetchFunc: fetcher.PostJSON,
	}
}

// Lookup fetches offers for a batch of product ids.
func (c *Client) Lookup(ctx context.Context, ids []string) ([]Offer, error) {
	res, err := c.fetchFunc(ctx, c.endpoint, map[string][]string{"ids": ids})
	if err != nil {
		return nil, err
	}
	if res.JSON == nil {
		return nil, apperrors.NewParsing("offers", "offers response was not JSON", nil)
	}

	var offers []Offer
	if err := json.Unmarshal(res.JSON, &offers); err != nil {
		return nil, apperrors.NewParsing("offers", "failed to decode offers response", err)
	}
	return offers, nil
}
