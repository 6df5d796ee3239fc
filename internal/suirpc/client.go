// Package suirpc is a minimal JSON-RPC client for a Sui fullnode. It only
// covers the reads this gateway needs.
package suirpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/geocoder89/suiticket/internal/observability"
	"github.com/gojektech/heimdall/v6/httpclient"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	methodGetOwnedObjects     = "suix_getOwnedObjects"
	methodGetObject           = "sui_getObject"
	methodQueryEvents         = "suix_queryEvents"
	methodGetTransactionBlock = "sui_getTransactionBlock"
	methodGetChainIdentifier  = "sui_getChainIdentifier"

	defaultTimeout   = 10 * time.Second
	maxResponseBytes = 8 << 20
)

var ErrHTTPStatus = errors.New("unexpected http status from fullnode")

// Doer is satisfied by *http.Client and heimdall's client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	url    string
	http   Doer
	prom   *observability.Prom
	tracer trace.Tracer
	nextID atomic.Uint64
}

type Option func(*Client)

func WithDoer(d Doer) Option {
	return func(c *Client) { c.http = d }
}

func WithProm(p *observability.Prom) Option {
	return func(c *Client) { c.prom = p }
}

// New builds a client for url. The transport never retries on its own;
// only the confirmation poller retries, and only transaction lookups.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url: url,
		http: httpclient.NewClient(
			httpclient.WithHTTPTimeout(defaultTimeout),
			httpclient.WithRetryCount(0),
		),
		tracer: observability.Tracer(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) URL() string { return c.url }

func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	ctx, span := c.tracer.Start(ctx, "suirpc "+method, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(attribute.String("rpc.system", "jsonrpc"), attribute.String("rpc.method", method))
	defer span.End()

	do := func() error { return c.roundTrip(ctx, method, params, out) }

	var err error
	if c.prom != nil {
		err = c.prom.ObserveRPC(method, do)
	} else {
		err = do()
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, method string, params []any, out any) error {
	if params == nil {
		params = []any{}
	}

	body, err := json.Marshal(request{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", method, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s: %w: %d", method, ErrHTTPStatus, resp.StatusCode)
	}

	var rpcResp response
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}

	if rpcResp.Error != nil {
		return fmt.Errorf("%s: %w", method, rpcResp.Error)
	}

	if out == nil || len(rpcResp.Result) == 0 || string(rpcResp.Result) == "null" {
		return nil
	}

	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}

	return nil
}

// GetOwnedObjects returns one page. Pass the previous page's NextCursor
// to continue; nil starts from the beginning.
func (c *Client) GetOwnedObjects(ctx context.Context, owner string, q OwnedObjectsQuery, cursor *string) (OwnedObjectsPage, error) {
	var page OwnedObjectsPage
	err := c.call(ctx, methodGetOwnedObjects, []any{owner, q, cursor, nil}, &page)
	return page, err
}

func (c *Client) GetObject(ctx context.Context, id string, opts ObjectDataOptions) (ObjectResponse, error) {
	var obj ObjectResponse
	err := c.call(ctx, methodGetObject, []any{id, opts}, &obj)
	return obj, err
}

func (c *Client) QueryEvents(ctx context.Context, filter EventFilter, cursor *EventID, descending bool) (EventPage, error) {
	var page EventPage
	err := c.call(ctx, methodQueryEvents, []any{filter, cursor, nil, descending}, &page)
	return page, err
}

// GetTransactionBlock returns nil without error when the node answers
// with an empty result.
func (c *Client) GetTransactionBlock(ctx context.Context, digest string, opts TransactionBlockOptions) (*TransactionBlock, error) {
	var block *TransactionBlock
	if err := c.call(ctx, methodGetTransactionBlock, []any{digest, opts}, &block); err != nil {
		return nil, err
	}
	return block, nil
}

func (c *Client) ChainIdentifier(ctx context.Context) (string, error) {
	var id string
	err := c.call(ctx, methodGetChainIdentifier, nil, &id)
	return id, err
}

// Ping is used by readiness checks.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.ChainIdentifier(ctx)
	return err
}
