package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/suiticket/internal/txbuilder"
	"github.com/gojektech/heimdall/v6/httpclient"
)

// Bridge talks to a wallet daemon over HTTP:
//
//	GET  {base}/accounts                -> {"accounts": ["0x.."]}
//	POST {base}/sign-and-execute {sender, transaction} -> {"digest": ".."}
type Bridge struct {
	base   string
	client *httpclient.Client
}

func NewBridge(baseURL string, timeout time.Duration) *Bridge {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Bridge{
		base: strings.TrimRight(baseURL, "/"),
		client: httpclient.NewClient(
			httpclient.WithHTTPTimeout(timeout),
			httpclient.WithRetryCount(0),
		),
	}
}

type accountsResponse struct {
	Accounts []string `json:"accounts"`
}

type signRequest struct {
	Sender      string         `json:"sender"`
	Transaction txbuilder.Call `json:"transaction"`
}

type signResponse struct {
	Digest string `json:"digest"`
	Error  string `json:"error,omitempty"`
}

func (b *Bridge) Accounts(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.base+"/accounts", nil)
	if err != nil {
		return nil, err
	}

	var out accountsResponse
	if err := b.do(req, &out); err != nil {
		return nil, fmt.Errorf("wallet accounts: %w", err)
	}

	return out.Accounts, nil
}

func (b *Bridge) SignAndExecute(ctx context.Context, sender string, call txbuilder.Call) (string, error) {
	body, err := json.Marshal(signRequest{Sender: sender, Transaction: call})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.base+"/sign-and-execute", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var out signResponse
	if err := b.do(req, &out); err != nil {
		return "", fmt.Errorf("wallet sign: %w", err)
	}

	if out.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrSignerRejected, out.Error)
	}

	if out.Digest == "" {
		return "", ErrNoDigest
	}

	return out.Digest, nil
}

func (b *Bridge) do(req *http.Request, out any) error {
	resp, err := b.client.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return err
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var e signResponse
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			return fmt.Errorf("%w: %s", ErrSignerRejected, e.Error)
		}
		return fmt.Errorf("wallet bridge status %d", resp.StatusCode)
	}

	return json.Unmarshal(raw, out)
}
