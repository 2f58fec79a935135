// Package bitunix is the REST gateway to Bitunix perpetual futures. It
// exposes the typed operations the trade executor and position monitor
// consume; the client itself is stateless beyond the signing credentials and
// safe for concurrent use.
package bitunix

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the production Bitunix futures API host.
	DefaultBaseURL = "https://fapi.bitunix.com"

	defaultTimeout = 20 * time.Second
	userAgent      = "bitunix-signal-bot/1.0"
)

// APIError is a non-zero code in the exchange response envelope. The HTTP
// exchange succeeded; the operation did not.
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bitunix api error code=%d msg=%s", e.Code, e.Msg)
}

// Config holds client construction parameters.
type Config struct {
	APIKey    string
	APISecret string
	BaseURL   string
	Timeout   time.Duration
}

// Client is the HTTP implementation of the Gateway interface.
type Client struct {
	apiKey     string
	apiSecret  string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a Bitunix REST client. Keys are trimmed: stray
// whitespace breaks signature generation in ways the exchange reports only
// as a generic auth failure.
func NewClient(cfg Config, logger zerolog.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	apiSecret := strings.TrimSpace(cfg.APISecret)
	if apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("bitunix: api key and secret are required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "BitunixClient").Logger(),
	}, nil
}

// ==================== SIGNING ====================

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// queryForSign concatenates "key value" pairs sorted by key with no
// separators, the exchange's canonical query form.
func queryForSign(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(params[k])
	}
	return b.String()
}

// bodyForSign renders the request body as compact JSON with sorted keys.
// Bodies are built as map[string]any precisely so encoding/json emits keys
// in sorted order, matching what is signed with what is sent.
func bodyForSign(body map[string]any) (string, error) {
	if len(body) == 0 {
		return "", nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(body); err != nil {
		return "", fmt.Errorf("encode body: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// sign computes sha256(sha256(nonce+timestamp+apiKey+query+body) + secret).
func (c *Client) sign(nonce, timestamp, query, body string) string {
	digest := sha256Hex(nonce + timestamp + c.apiKey + query + body)
	return sha256Hex(digest + c.apiSecret)
}

// ==================== TRANSPORT ====================

// envelope is the uniform response wrapper: code 0 means success.
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func decodeEnvelope(body []byte, status int) (json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		snippet := string(body)
		if len(snippet) > 400 {
			snippet = snippet[:400]
		}
		return nil, fmt.Errorf("http %d: non-JSON response: %s", status, snippet)
	}
	if env.Code != 0 {
		return nil, &APIError{Code: env.Code, Msg: env.Msg}
	}
	return env.Data, nil
}

// signedRequest performs an authenticated call and returns the envelope's
// data payload.
func (c *Client) signedRequest(method, path string, params map[string]string, body map[string]any) (json.RawMessage, error) {
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)

	query := queryForSign(params)
	canonicalBody, err := bodyForSign(body)
	if err != nil {
		return nil, err
	}
	signature := c.sign(nonce, timestamp, query, canonicalBody)

	reqURL := c.baseURL + path
	if len(params) > 0 {
		values := url.Values{}
		for k, v := range params {
			values.Set(k, v)
		}
		reqURL += "?" + values.Encode()
	}

	var reqBody io.Reader
	if canonicalBody != "" {
		reqBody = strings.NewReader(canonicalBody)
	}

	req, err := http.NewRequest(method, reqURL, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("nonce", nonce)
	req.Header.Set("timestamp", timestamp)
	req.Header.Set("sign", signature)
	req.Header.Set("language", "en-US")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	return decodeEnvelope(raw, resp.StatusCode)
}

// publicRequest performs an unauthenticated GET against a market-data path.
func (c *Client) publicRequest(path string, params map[string]string) (json.RawMessage, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		values := url.Values{}
		for k, v := range params {
			values.Set(k, v)
		}
		reqURL += "?" + values.Encode()
	}

	req, err := http.NewRequest(http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("GET %s: read body: %w", path, err)
	}

	return decodeEnvelope(raw, resp.StatusCode)
}
