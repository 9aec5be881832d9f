// Package httpgateway is the live gateway.Gateway: HTTP/JSON calls to a
// wallet backend with a validated response parse that fails closed.
package httpgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goWallet/gateway"
	"github.com/MrEthical07/goWallet/gateway/wire"
	"github.com/MrEthical07/goWallet/sessionkey"
)

const maxResponseBytes = 1 << 20

// Config configures a Client.
type Config struct {
	BaseURL string
	// Timeout bounds every request. Defaults to 30s.
	Timeout time.Duration
	// HTTPClient overrides the transport. Its own Timeout is replaced by
	// Timeout when that is set.
	HTTPClient *http.Client
}

// Client talks to a wallet backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ gateway.Gateway = (*Client)(nil)

// New returns a Client for cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("live gateway base url is empty")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid live gateway base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	hc := &http.Client{Timeout: timeout}
	if cfg.HTTPClient != nil {
		copied := *cfg.HTTPClient
		copied.Timeout = timeout
		hc = &copied
	}
	return &Client{baseURL: base, httpClient: hc}, nil
}

func (c *Client) ExchangeFederatedCredential(ctx context.Context, credential string) (string, error) {
	var data wire.AuthTokenData
	if err := c.call(ctx, http.MethodPost, wire.PathGoogleAuth, "", wire.GoogleAuthRequest{IDToken: credential}, &data); err != nil {
		return "", err
	}
	if strings.TrimSpace(data.AuthToken) == "" {
		return "", fmt.Errorf("%w: missing auth_token", gateway.ErrMalformedResponse)
	}
	return data.AuthToken, nil
}

func (c *Client) RequestEmailChallenge(ctx context.Context, email string) (string, error) {
	var data wire.EmailAuthData
	if err := c.call(ctx, http.MethodPost, wire.PathEmailAuth, "", wire.EmailAuthRequest{Email: email}, &data); err != nil {
		return "", err
	}
	if strings.TrimSpace(data.Token) == "" {
		return "", fmt.Errorf("%w: missing challenge token", gateway.ErrMalformedResponse)
	}
	return data.Token, nil
}

func (c *Client) VerifyEmailChallenge(ctx context.Context, email, code, challengeToken string) (string, error) {
	var data wire.AuthTokenData
	req := wire.EmailVerifyRequest{Email: email, OTP: code, Token: challengeToken}
	if err := c.call(ctx, http.MethodPost, wire.PathEmailVerify, "", req, &data); err != nil {
		return "", err
	}
	if strings.TrimSpace(data.AuthToken) == "" {
		return "", fmt.Errorf("%w: missing auth_token", gateway.ErrMalformedResponse)
	}
	return data.AuthToken, nil
}

func (c *Client) VerifySession(ctx context.Context, token string) (gateway.Identity, error) {
	var data wire.SessionData
	if err := c.call(ctx, http.MethodGet, wire.PathVerifySession, token, nil, &data); err != nil {
		return gateway.Identity{}, err
	}
	return parseIdentity(data)
}

func (c *Client) InvalidateSession(ctx context.Context, token string) error {
	return c.call(ctx, http.MethodPost, wire.PathLogout, token, nil, nil)
}

func (c *Client) ListNetworks(ctx context.Context) ([]gateway.Network, error) {
	var data wire.NetworksData
	if err := c.call(ctx, http.MethodGet, wire.PathNetworks, "", nil, &data); err != nil {
		return nil, err
	}
	for _, n := range data.Networks {
		if n.CAIPID == "" || n.Name == "" {
			return nil, fmt.Errorf("%w: network without caip_id or name", gateway.ErrMalformedResponse)
		}
	}
	return data.Networks, nil
}

func (c *Client) ListTokens(ctx context.Context) ([]gateway.Token, error) {
	var data wire.TokensData
	if err := c.call(ctx, http.MethodGet, wire.PathTokens, "", nil, &data); err != nil {
		return nil, err
	}
	for _, t := range data.Tokens {
		if t.Address == "" || t.NetworkName == "" {
			return nil, fmt.Errorf("%w: token without address or network", gateway.ErrMalformedResponse)
		}
	}
	return data.Tokens, nil
}

func (c *Client) SubmitTransfer(ctx context.Context, token string, keys sessionkey.Material, spec gateway.TransferSpec) (string, error) {
	req := wire.TransferRequest{
		NetworkName:      spec.NetworkID,
		TokenAddress:     spec.TokenAddress,
		Quantity:         strconv.FormatFloat(spec.Amount, 'f', -1, 64),
		RecipientAddress: spec.Recipient,
		SessionConfig:    keys,
	}
	var data wire.TransferData
	if err := c.call(ctx, http.MethodPost, wire.PathTransferSubmit, token, req, &data); err != nil {
		return "", err
	}
	if strings.TrimSpace(data.JobID) == "" {
		return "", fmt.Errorf("%w: missing job_id", gateway.ErrMalformedResponse)
	}
	return data.JobID, nil
}

func (c *Client) CheckJobStatus(ctx context.Context, token, jobID string) (gateway.StatusReport, error) {
	path := wire.PathOrderStatus + "?" + url.Values{wire.QueryOrderID: {jobID}}.Encode()
	var data wire.OrderStatusData
	if err := c.call(ctx, http.MethodGet, path, token, nil, &data); err != nil {
		return gateway.StatusReport{}, err
	}
	status, ok := gateway.ParseJobStatus(data.Status)
	if !ok {
		return gateway.StatusReport{}, fmt.Errorf("%w: unknown order status %q", gateway.ErrMalformedResponse, data.Status)
	}
	if data.OrderID != "" && data.OrderID != jobID {
		return gateway.StatusReport{}, fmt.Errorf("%w: status for another order", gateway.ErrMalformedResponse)
	}
	report := gateway.StatusReport{
		JobID:           jobID,
		Status:          status,
		TransactionHash: data.TransactionHash,
		FailureReason:   data.FailureReason,
	}
	if err := report.Validate(); err != nil {
		return gateway.StatusReport{}, err
	}
	return report, nil
}

func (c *Client) call(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: %v", gateway.ErrTransportFailure, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", gateway.ErrTransportFailure, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: %v", gateway.ErrTransportFailure, err)
	}

	var env wire.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 400 {
			return fmt.Errorf("%w: status %d", gateway.ErrTransportFailure, resp.StatusCode)
		}
		return fmt.Errorf("%w: %v", gateway.ErrMalformedResponse, err)
	}

	switch env.Status {
	case wire.StatusError:
		return envelopeError(env, resp.StatusCode)
	case wire.StatusSuccess:
	default:
		if resp.StatusCode >= 400 {
			return fmt.Errorf("%w: status %d", gateway.ErrTransportFailure, resp.StatusCode)
		}
		return fmt.Errorf("%w: missing envelope status", gateway.ErrMalformedResponse)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: success envelope with status %d", gateway.ErrMalformedResponse, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return fmt.Errorf("%w: missing data", gateway.ErrMalformedResponse)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: %v", gateway.ErrMalformedResponse, err)
	}
	return nil
}

func envelopeError(env wire.Envelope, status int) error {
	sentinel, ok := gateway.ErrorForCode(env.Code)
	if !ok {
		msg := env.Message
		if msg == "" {
			msg = "status " + strconv.Itoa(status)
		}
		return fmt.Errorf("%w: %s", gateway.ErrTransportFailure, msg)
	}
	if env.Message == "" || env.Message == sentinel.Error() {
		return sentinel
	}
	return fmt.Errorf("%w: %s", sentinel, env.Message)
}

func parseIdentity(d wire.SessionData) (gateway.Identity, error) {
	if d.UserID == nil || strings.TrimSpace(*d.UserID) == "" {
		return gateway.Identity{}, fmt.Errorf("%w: missing user_id", gateway.ErrMalformedResponse)
	}
	if d.VendorID == nil || d.UserSWA == nil {
		return gateway.Identity{}, fmt.Errorf("%w: incomplete identity", gateway.ErrMalformedResponse)
	}
	id := gateway.Identity{
		UserID:      *d.UserID,
		VendorID:    *d.VendorID,
		UserAddress: *d.UserSWA,
	}
	if d.VendorSWA != nil {
		id.VendorAddress = *d.VendorSWA
	}
	if d.SessionAdded != nil {
		id.SessionAdded = *d.SessionAdded
	}
	if d.RelayerOpsMode != nil {
		id.RelayerOpsMode = *d.RelayerOpsMode
	}
	return id, nil
}
