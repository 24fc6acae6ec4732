/*

This file contains the HTTP client for the external yield manager's API.

The manager exposes a small JSON API:

  GET  /v1/balance               -> {"balance": "<integer reserve units>"}
  POST /v1/deposits   {"amount"} -> {"accepted": "<amount>"}
  POST /v1/withdrawals{"amount"} -> {"returned": "<amount>"}

Amounts travel as decimal strings end to end; the client refuses anything it
cannot parse into a non-negative integer.

*/

package manager

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/usxprotocol/treasury/internal/logger"
)

const clientTimeout = 30 * time.Second

// Client talks to a yield manager node over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a manager client for the given base URL.
func NewClient(baseURL string) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("manager base URL cannot be empty")
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: clientTimeout},
		log:        logger.GetForComponent("manager_client"),
	}, nil
}

type balanceResponse struct {
	Balance string `json:"balance"`
}

type notifyRequest struct {
	Amount string `json:"amount"`
}

type depositResponse struct {
	Accepted string `json:"accepted"`
}

type withdrawResponse struct {
	Returned string `json:"returned"`
}

// Balance reports the manager's current total managed-asset balance.
func (c *Client) Balance(ctx context.Context) (sdkmath.Int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/balance", nil)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("failed to build balance request: %w", err)
	}

	var body balanceResponse
	if err := c.do(req, &body); err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("balance query failed: %w", err)
	}

	balance, err := parseAmount(body.Balance)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("balance query: %w", err)
	}

	c.log.Debug().Str("balance", balance.String()).Msg("Fetched manager balance")
	return balance, nil
}

// NotifyDeposit announces a capital transfer into the manager and verifies
// the acknowledged amount matches exactly.
func (c *Client) NotifyDeposit(ctx context.Context, amount sdkmath.Int) error {
	var body depositResponse
	if err := c.post(ctx, "/v1/deposits", amount, &body); err != nil {
		return fmt.Errorf("deposit notification failed: %w", err)
	}

	accepted, err := parseAmount(body.Accepted)
	if err != nil {
		return fmt.Errorf("deposit notification: %w", err)
	}
	if !accepted.Equal(amount) {
		return fmt.Errorf("%w: requested %s, acknowledged %s", ErrInvalidResponse, amount, accepted)
	}

	c.log.Info().Str("amount", amount.String()).Msg("Manager acknowledged deposit")
	return nil
}

// NotifyWithdraw requests capital back from the manager and returns the
// amount the manager reports as returned.
func (c *Client) NotifyWithdraw(ctx context.Context, amount sdkmath.Int) (sdkmath.Int, error) {
	var body withdrawResponse
	if err := c.post(ctx, "/v1/withdrawals", amount, &body); err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("withdraw notification failed: %w", err)
	}

	returned, err := parseAmount(body.Returned)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("withdraw notification: %w", err)
	}

	c.log.Info().
		Str("requested", amount.String()).
		Str("returned", returned.String()).
		Msg("Manager acknowledged withdrawal")
	return returned, nil
}

func (c *Client) post(ctx context.Context, path string, amount sdkmath.Int, out interface{}) error {
	payload, err := json.Marshal(notifyRequest{Amount: amount.String()})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response from %s: %w", req.URL.Path, err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned status %d: %s",
			ErrInvalidResponse, req.URL.Path, resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: failed to decode %s response: %v", ErrInvalidResponse, req.URL.Path, err)
	}
	return nil
}

func parseAmount(raw string) (sdkmath.Int, error) {
	if raw == "" {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: empty amount", ErrInvalidResponse)
	}
	amount, ok := sdkmath.NewIntFromString(raw)
	if !ok {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: unparseable amount %q", ErrInvalidResponse, raw)
	}
	if amount.IsNegative() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: negative amount %q", ErrInvalidResponse, raw)
	}
	return amount, nil
}
