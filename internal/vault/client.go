package vault

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"cosmossdk.io/math"
)

// Client implements Vault against a remote vault daemon's REST API.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// NewClient creates a vault client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Name() string { return "remote" }

func (c *Client) Deposit(amount math.Int, lockTier int) (string, error) {
	var result struct {
		Handle string `json:"handle"`
	}
	body := map[string]any{"amount": amount.String(), "lock_tier": lockTier}
	if err := c.do("POST", "/api/v1/deposits", body, &result); err != nil {
		return "", fmt.Errorf("vault deposit: %w", err)
	}
	return result.Handle, nil
}

func (c *Client) WithdrawAndHarvest(handle string, amount math.Int) (math.Int, math.Int, error) {
	var result struct {
		Principal string `json:"principal"`
		Yield     string `json:"yield"`
	}
	body := map[string]any{"amount": amount.String()}
	path := fmt.Sprintf("/api/v1/deposits/%s/withdraw", handle)
	if err := c.do("POST", path, body, &result); err != nil {
		return math.ZeroInt(), math.ZeroInt(), fmt.Errorf("vault withdraw: %w", err)
	}
	principal, err := parseAmount(result.Principal)
	if err != nil {
		return math.ZeroInt(), math.ZeroInt(), err
	}
	yield, err := parseAmount(result.Yield)
	if err != nil {
		return math.ZeroInt(), math.ZeroInt(), err
	}
	return principal, yield, nil
}

func (c *Client) HarvestAll() error {
	if err := c.do("POST", "/api/v1/harvest", nil, nil); err != nil {
		return fmt.Errorf("vault harvest: %w", err)
	}
	return nil
}

func (c *Client) CurrentPrincipal(handle string) (math.Int, error) {
	var result struct {
		Principal string `json:"principal"`
	}
	path := fmt.Sprintf("/api/v1/deposits/%s", handle)
	if err := c.do("GET", path, nil, &result); err != nil {
		return math.ZeroInt(), fmt.Errorf("vault principal: %w", err)
	}
	return parseAmount(result.Principal)
}

func (c *Client) LockDurationFor(lockTier int) (time.Duration, error) {
	var result struct {
		Seconds int64 `json:"seconds"`
	}
	path := fmt.Sprintf("/api/v1/lock-tiers/%d", lockTier)
	if err := c.do("GET", path, nil, &result); err != nil {
		return 0, fmt.Errorf("vault lock duration: %w", err)
	}
	return time.Duration(result.Seconds) * time.Second, nil
}

func (c *Client) PendingYield() (math.Int, error) {
	var result struct {
		Pending string `json:"pending"`
	}
	if err := c.do("GET", "/api/v1/pending-yield", nil, &result); err != nil {
		return math.ZeroInt(), fmt.Errorf("vault pending yield: %w", err)
	}
	return parseAmount(result.Pending)
}

func (c *Client) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d, body: %s", resp.StatusCode, string(respBody))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseAmount(s string) (math.Int, error) {
	if s == "" {
		return math.ZeroInt(), nil
	}
	v, ok := math.NewIntFromString(s)
	if !ok {
		return math.ZeroInt(), fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}
