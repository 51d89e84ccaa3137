// Package metrc implements the regulator API over HTTP.
package metrc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cannapos/internal/config"
	"cannapos/internal/domain/regulator"
	"cannapos/pkg/logger"
)

var tracer = otel.Tracer("cannapos/metrc")

// Compile-time check that Client implements regulator.Client.
var _ regulator.Client = (*Client)(nil)

// Sleeper waits between rate-limited attempts.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Client talks to the regulator REST API.
type Client struct {
	cfg   config.MetrcConfig
	http  *http.Client
	sleep Sleeper
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithSleeper replaces the backoff sleeper.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) { c.sleep = s }
}

// NewClient creates a regulator client.
func NewClient(cfg config.MetrcConfig, opts ...Option) *Client {
	c := &Client{
		cfg:   cfg,
		http:  &http.Client{Timeout: cfg.Timeout},
		sleep: sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cfg.MaxRetries <= 0 {
		c.cfg.MaxRetries = 10
	}
	if c.cfg.PageSize <= 0 {
		c.cfg.PageSize = 20
	}
	return c
}

type response struct {
	status      int
	contentType string
	body        []byte
}

func (r response) isJSON() bool {
	return strings.Contains(r.contentType, "application/json")
}

func (c *Client) authorization(creds regulator.Credentials) string {
	token := base64.StdEncoding.EncodeToString([]byte(c.cfg.ActiveVendorKey() + ":" + creds.APIKey))
	return "Basic " + token
}

// do sends one request, retrying while the regulator answers 429.
// The delay before retry n (1-based) is RetryBase * n.
func (c *Client) do(ctx context.Context, creds regulator.Credentials, method, path string, query url.Values, body any) (response, error) {
	base, err := c.cfg.BaseURL(creds.State)
	if err != nil {
		return response{}, err
	}
	if query == nil {
		query = url.Values{}
	}
	query.Set("licenseNumber", creds.License)
	target := base + path + "?" + query.Encode()

	var payload []byte
	if body != nil {
		if payload, err = json.Marshal(body); err != nil {
			return response{}, fmt.Errorf("marshal %s body: %w", path, err)
		}
	}

	ctx, span := tracer.Start(ctx, "metrc "+method+" "+path,
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("metrc.path", path),
			attribute.Int64("dispensary.id", creds.DispensaryID),
		))
	defer span.End()

	for remaining := c.cfg.MaxRetries; ; {
		req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(payload))
		if err != nil {
			return response{}, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", c.authorization(creds))

		res, err := c.http.Do(req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "transport")
			return response{}, fmt.Errorf("metrc %s %s: %w", method, path, err)
		}
		data, err := io.ReadAll(res.Body)
		res.Body.Close()
		if err != nil {
			return response{}, fmt.Errorf("read metrc response: %w", err)
		}

		out := response{status: res.StatusCode, contentType: res.Header.Get("Content-Type"), body: data}
		logger.Debug(ctx, "metrc call",
			"method", method,
			"path", path,
			"status", out.status,
			"attempt", c.cfg.MaxRetries-remaining+1,
		)

		if out.status != http.StatusTooManyRequests || remaining <= 1 {
			span.SetAttributes(attribute.Int("http.status_code", out.status))
			if !regulator.OK(out.status) {
				span.SetStatus(codes.Error, http.StatusText(out.status))
			}
			return out, nil
		}

		logger.Warn(ctx, "metrc rate limited", "path", path, "retries_left", remaining)
		if err := c.sleep(ctx, c.cfg.RetryBase*time.Duration(c.cfg.MaxRetries+1-remaining)); err != nil {
			return response{}, err
		}
		remaining--
	}
}

type packagePage struct {
	Data       []regulator.RemotePackage `json:"Data"`
	TotalPages int                       `json:"TotalPages"`
}

// ListPackages implements regulator.Client.
func (c *Client) ListPackages(ctx context.Context, creds regulator.Credentials, kind regulator.PackageKind, lastModifiedStart string) []regulator.RemotePackage {
	var all []regulator.RemotePackage
	for page, total := 1, 1; page <= total; page++ {
		query := url.Values{}
		query.Set("lastModifiedStart", lastModifiedStart)
		query.Set("lastModifiedEnd", c.cfg.LastModifiedEnd)
		query.Set("pageNumber", strconv.Itoa(page))
		query.Set("pageSize", strconv.Itoa(c.cfg.PageSize))

		res, err := c.do(ctx, creds, http.MethodGet, "packages/v2/"+string(kind), query, nil)
		if err != nil {
			logger.Error(ctx, "metrc package listing failed", "kind", kind, "page", page, "error", err)
			return nil
		}
		if !regulator.OK(res.status) || !res.isJSON() {
			logger.Error(ctx, "metrc package listing rejected", "kind", kind, "page", page, "status", res.status)
			return nil
		}

		var p packagePage
		if err := json.Unmarshal(res.body, &p); err != nil {
			logger.Error(ctx, "metrc package listing is not valid JSON", "kind", kind, "page", page, "error", err)
			return nil
		}
		all = append(all, p.Data...)
		total = p.TotalPages
	}
	return all
}

// Adjust implements regulator.Client.
func (c *Client) Adjust(ctx context.Context, creds regulator.Credentials, adjustments []regulator.Adjustment) (int, error) {
	res, err := c.do(ctx, creds, http.MethodPost, "packages/v2/adjust", nil, adjustments)
	return res.status, err
}

// Finish implements regulator.Client.
func (c *Client) Finish(ctx context.Context, creds regulator.Credentials, reqs []regulator.FinishRequest) (int, error) {
	res, err := c.do(ctx, creds, http.MethodPut, "packages/v2/finish", nil, reqs)
	return res.status, err
}

// Unfinish implements regulator.Client.
func (c *Client) Unfinish(ctx context.Context, creds regulator.Credentials, reqs []regulator.UnfinishRequest) (int, error) {
	res, err := c.do(ctx, creds, http.MethodPut, "packages/v2/unfinish", nil, reqs)
	return res.status, err
}

type receiptIDs struct {
	IDs []int64 `json:"Ids"`
}

// PostReceipt implements regulator.Client.
func (c *Client) PostReceipt(ctx context.Context, creds regulator.Credentials, receipt regulator.Receipt) (regulator.ReceiptResult, error) {
	res, err := c.do(ctx, creds, http.MethodPost, "sales/v2/receipts", nil, []regulator.Receipt{receipt})
	if err != nil {
		return regulator.ReceiptResult{}, err
	}
	out := regulator.ReceiptResult{Status: res.status}
	if !regulator.OK(res.status) {
		logger.Error(ctx, "metrc receipt rejected", "status", res.status, "body", string(res.body))
		return out, nil
	}

	var ids receiptIDs
	if err := json.Unmarshal(res.body, &ids); err != nil || len(ids.IDs) == 0 {
		return regulator.ReceiptResult{}, fmt.Errorf("metrc receipt response without id: %s", string(res.body))
	}
	out.ID = ids.IDs[0]
	return out, nil
}

// DeleteReceipt implements regulator.Client.
func (c *Client) DeleteReceipt(ctx context.Context, creds regulator.Credentials, receiptID int64) (int, error) {
	res, err := c.do(ctx, creds, http.MethodDelete, "sales/v2/receipts/"+strconv.FormatInt(receiptID, 10), nil, nil)
	return res.status, err
}
