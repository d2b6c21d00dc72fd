package creditapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultTimeout = 10 * time.Second
	defaultPath    = "/credit"

	// MethodAdmin marks credits issued through the admin command.
	MethodAdmin = "ADMIN"

	maxDetailBytes = 2048
)

// Error kinds.
const (
	KindConfig   = "config"
	KindTimeout  = "timeout"
	KindNetwork  = "network"
	KindRequest  = "request"
	KindHTTP     = "http"
	KindResponse = "response"
)

// Error is any credit call that did not end in HTTP 200 with {"ok": true}.
// StatusCode is zero when no response was received.
type Error struct {
	Kind       string
	StatusCode int
	Detail     string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("credit api %s error: status=%d detail=%s", e.Kind, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("credit api %s error: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Request is the body of POST /credit.
type Request struct {
	AccountIdentity string      `json:"account_identity"`
	Amount          json.Number `json:"amount"`
	Method          string      `json:"method"`
}

// Result is the decoded success body.
type Result struct {
	OK      bool            `json:"ok"`
	Message string          `json:"message,omitempty"`
	Raw     json.RawMessage `json:"-"`
}

// Client calls the balance crediting API.
type Client struct {
	baseURL string
	path    string
	secret  string
	http    *http.Client
}

// NewClient creates a credit API client. An empty path means /credit.
func NewClient(baseURL, path, secret string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if strings.TrimSpace(path) == "" {
		path = defaultPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   5,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		path:    path,
		secret:  secret,
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// Credit asks the gateway to add amount to account. The call is made once;
// retrying is left to the operator.
func (c *Client) Credit(ctx context.Context, account string, amount decimal.Decimal) (*Result, error) {
	if c == nil || c.http == nil {
		return nil, &Error{Kind: KindConfig, Detail: "client is nil"}
	}
	if c.baseURL == "" {
		return nil, &Error{Kind: KindConfig, Detail: "base url is empty"}
	}

	payload, err := json.Marshal(Request{
		AccountIdentity: account,
		Amount:          json.Number(amount.String()),
		Method:          MethodAdmin,
	})
	if err != nil {
		return nil, &Error{Kind: KindRequest, Detail: err.Error(), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.path, bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Kind: KindRequest, Detail: err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-SECRET-KEY", c.secret)
	req.Header.Set("X-Request-ID", uuid.New().String())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyRequestError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, &Error{Kind: KindResponse, StatusCode: resp.StatusCode, Detail: "failed to read body: " + err.Error(), Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Kind: KindHTTP, StatusCode: resp.StatusCode, Detail: truncate(string(body))}
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &Error{Kind: KindResponse, StatusCode: resp.StatusCode, Detail: "invalid json: " + truncate(string(body)), Err: err}
	}
	if !result.OK {
		return nil, &Error{Kind: KindResponse, StatusCode: resp.StatusCode, Detail: truncate(string(body))}
	}
	result.Raw = body
	return &result, nil
}

// truncate caps s at maxDetailBytes without splitting a UTF-8 sequence.
func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxDetailBytes {
		return s
	}
	n := maxDetailBytes
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

func classifyRequestError(ctx context.Context, err error) error {
	if isTimeoutError(ctx, err) {
		return &Error{Kind: KindTimeout, Detail: err.Error(), Err: err}
	}
	if isNetworkError(err) {
		return &Error{Kind: KindNetwork, Detail: err.Error(), Err: err}
	}
	return &Error{Kind: KindRequest, Detail: err.Error(), Err: err}
}

func isTimeoutError(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH)
}
