package sequence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Version is reported in the User-Agent header.
const Version = "0.4.0"

// maxResponseBytes bounds how much of a response body is read. Listing pages
// can be large, so this is well above the size of a single object.
const maxResponseBytes = 32 << 20

// Requester performs one ledger call: it POSTs body as JSON to path and
// decodes the JSON response into out. *Client implements it over HTTP; tests
// and callers with their own transport may supply another implementation
// through WithRequester.
type Requester interface {
	Request(ctx context.Context, path string, body, out any) error
}

// Client is the SDK entry point. It holds only immutable configuration, so a
// single Client may be shared by concurrent callers.
type Client struct {
	ledgerURL  string
	httpClient *http.Client
	credential string
	userAgent  string
	limiter    *rate.Limiter
	logger     *zap.Logger
	requester  Requester

	Keys         *KeysAPI
	Accounts     *AccountsAPI
	Flavors      *FlavorsAPI
	Actions      *ActionsAPI
	Tokens       *TokensAPI
	Transactions *TransactionsAPI
	DevUtils     *DevUtilsAPI
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("http client must not be nil")
		}
		c.httpClient = hc
		return nil
	}
}

// WithCredential attaches an API credential as a Bearer token on every
// request. The credential is issued out of band; the client never refreshes it.
func WithCredential(credential string) Option {
	return func(c *Client) error {
		c.credential = credential
		return nil
	}
}

// WithLogger enables request logging at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// WithRateLimit makes the client wait for a token before every request.
// rps is the steady-state request rate; burst is the bucket size.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) error {
		if rps <= 0 || burst < 1 {
			return fmt.Errorf("invalid rate limit: rps=%v burst=%d", rps, burst)
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		return nil
	}
}

// WithUserAgent appends product information to the User-Agent header.
func WithUserAgent(product string) Option {
	return func(c *Client) error {
		c.userAgent += " " + product
		return nil
	}
}

// WithRequester routes every call through r instead of the built-in HTTP
// transport. The ledger URL may then be empty.
func WithRequester(r Requester) Option {
	return func(c *Client) error {
		c.requester = r
		return nil
	}
}

// New creates a Client for the ledger served at ledgerURL.
//
//	c, err := sequence.New("https://api.seq.com/my-ledger",
//	    sequence.WithCredential(os.Getenv("SEQ_CREDENTIAL")),
//	    sequence.WithLogger(logger),
//	)
func New(ledgerURL string, opts ...Option) (*Client, error) {
	c := &Client{
		ledgerURL:  strings.TrimRight(ledgerURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		userAgent:  "sequence-sdk-go/" + Version,
		logger:     zap.NewNop(),
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}

	if c.requester == nil {
		u, err := url.Parse(c.ledgerURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid ledger URL %q", ledgerURL)
		}
	}

	if c.credential != "" {
		hc := *c.httpClient
		hc.Transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.credential, TokenType: "Bearer"}),
			Base:   c.httpClient.Transport,
		}
		c.httpClient = &hc
	}

	c.Keys = &KeysAPI{queryAPI: newQueryAPI[Key](c, "/list-keys"), r: c}
	c.Accounts = &AccountsAPI{queryAPI: newQueryAPI[Account](c, "/list-accounts"), r: c}
	c.Flavors = &FlavorsAPI{queryAPI: newQueryAPI[Flavor](c, "/list-flavors"), r: c}
	c.Actions = &ActionsAPI{
		queryAPI: newQueryAPI[ActionRecord](c, "/list-actions"),
		sums:     pager[ActionSum]{r: c, path: "/sum-actions"},
	}
	c.Tokens = &TokensAPI{
		queryAPI: newQueryAPI[Token](c, "/list-tokens"),
		sums:     pager[TokenSum]{r: c, path: "/sum-tokens"},
	}
	c.Transactions = &TransactionsAPI{queryAPI: newQueryAPI[Transaction](c, "/list-transactions"), r: c}
	c.DevUtils = &DevUtilsAPI{r: c}
	return c, nil
}

// MustNew is like New but panics on error. Useful in tests and program init.
func MustNew(ledgerURL string, opts ...Option) *Client {
	c, err := New(ledgerURL, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Request implements Requester. Non-2xx responses are returned as *APIError.
func (c *Client) Request(ctx context.Context, path string, body, out any) error {
	if c.requester != nil {
		return c.requester.Request(ctx, path, body, out)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	payload := []byte("{}")
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
	}

	target := c.ledgerURL + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Id", requestID)

	start := time.Now()
	status, respBody, err := c.doStatusBody(req)
	if err != nil {
		c.logger.Debug("ledger request failed",
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return err
	}
	c.logger.Debug("ledger request",
		zap.String("path", path),
		zap.String("request_id", requestID),
		zap.Int("status", status),
		zap.Duration("elapsed", time.Since(start)),
	)

	if status >= 300 {
		return decodeAPIError(status, respBody, requestID)
	}
	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return nil
}

// doStatusBody executes req and returns (statusCode, body, error) without
// interpreting the status code.
func (c *Client) doStatusBody(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func decodeAPIError(status int, body []byte, requestID string) error {
	apiErr := &APIError{}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Code == "" {
		apiErr = &APIError{
			Code:    CodeInternal,
			Message: http.StatusText(status),
			Detail:  strings.TrimSpace(string(body)),
		}
	}
	apiErr.Status = status
	if apiErr.RequestID == "" {
		apiErr.RequestID = requestID
	}
	return apiErr
}
