package outage

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

	logx "barghbot/pkg/logx"
)

// DefaultBaseURL is the utility's billing API root.
const DefaultBaseURL = "https://uiapi2.saapa.ir/api/ebills"

// FarFutureDate is the sentinel end date for "all future outages" queries;
// the upstream requires a concrete end date rather than an open range.
const FarFutureDate = "1499/12/29"

const (
	schedulePath = "/PlannedBlackoutsReport"
	livePath     = "/BlackoutsReport"

	defaultScheduleTimeout = 40 * time.Second
	defaultLiveTimeout     = 30 * time.Second

	// statusSnippetLen bounds how much of an error body is kept for logs
	// and user-facing error text.
	statusSnippetLen = 200
)

// FailKind classifies a gateway failure.
type FailKind int

const (
	FailNetwork FailKind = iota
	FailStatus
	FailDecode
)

func (k FailKind) String() string {
	switch k {
	case FailNetwork:
		return "network"
	case FailStatus:
		return "status"
	case FailDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// RequestError is the typed failure every gateway call returns. Callers
// recover from it per subject per tick; it never crashes a job.
type RequestError struct {
	Op      string // "schedule" or "live"
	Kind    FailKind
	Status  int    // HTTP status for FailStatus
	Snippet string // first bytes of a non-2xx body
	Err     error
}

func (e *RequestError) Error() string {
	switch e.Kind {
	case FailStatus:
		if e.Snippet != "" {
			return fmt.Sprintf("%s: request failed: %d %s", e.Op, e.Status, e.Snippet)
		}
		return fmt.Sprintf("%s: request failed: %d", e.Op, e.Status)
	case FailDecode:
		return fmt.Sprintf("%s: invalid response: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
	}
}

func (e *RequestError) Unwrap() error { return e.Err }

// ClientConfig configures the gateway client.
type ClientConfig struct {
	BaseURL string
	JWT     string

	ScheduleTimeout time.Duration
	LiveTimeout     time.Duration

	// ProxyURL routes gateway calls through an HTTP(S) proxy when set.
	// It never affects Telegram traffic.
	ProxyURL string
}

// Client calls the utility outage endpoints. Each operation is a single
// synchronous POST with no retries at this layer; the scheduler's next
// tick retries naturally via a cache miss.
type Client struct {
	cfg  ClientConfig
	http *http.Client
	log  logx.Logger
}

// NewClient builds a gateway client. An invalid proxy URL is reported once
// and ignored rather than refusing to start.
func NewClient(cfg ClientConfig, log logx.Logger) *Client {
	if log.IsZero() {
		log = logx.Nop()
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.ScheduleTimeout <= 0 {
		cfg.ScheduleTimeout = defaultScheduleTimeout
	}
	if cfg.LiveTimeout <= 0 {
		cfg.LiveTimeout = defaultLiveTimeout
	}

	transport := http.DefaultTransport
	if p := strings.TrimSpace(cfg.ProxyURL); p != "" {
		if pu, err := url.Parse(p); err == nil && pu.Scheme != "" {
			transport = &http.Transport{Proxy: http.ProxyURL(pu)}
			log.Info("gateway proxy enabled", logx.String("proxy", pu.Scheme+"://"+pu.Host))
		} else {
			log.Warn("invalid gateway proxy url; ignoring", logx.String("proxy", p))
		}
	}

	return &Client{
		cfg:  cfg,
		log:  log,
		http: &http.Client{Transport: transport},
	}
}

// Schedule fetches planned outages for the bill over [fromDate, toDate],
// Jalali date strings inclusive on both ends.
func (c *Client) Schedule(ctx context.Context, billID, fromDate, toDate string) ([]Record, error) {
	payload := map[string]string{
		"bill_id":   billID,
		"from_date": fromDate,
		"to_date":   toDate,
	}
	return c.post(ctx, "schedule", schedulePath, payload, c.cfg.ScheduleTimeout)
}

// Live fetches the dedicated live-status record list for the bill. Any
// returned list, including empty, is authoritative.
func (c *Client) Live(ctx context.Context, billID string) ([]Record, error) {
	payload := map[string]string{"bill_id": billID}
	return c.post(ctx, "live", livePath, payload, c.cfg.LiveTimeout)
}

func (c *Client) post(ctx context.Context, op, path string, payload any, timeout time.Duration) ([]Record, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &RequestError{Op: op, Kind: FailDecode, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, &RequestError{Op: op, Kind: FailNetwork, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(c.cfg.JWT))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RequestError{Op: op, Kind: FailNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, statusSnippetLen))
		return nil, &RequestError{
			Op:      op,
			Kind:    FailStatus,
			Status:  resp.StatusCode,
			Snippet: strings.TrimSpace(string(snippet)),
		}
	}

	var envelope struct {
		Data []Record `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &RequestError{Op: op, Kind: FailDecode, Err: err}
	}
	if envelope.Data == nil {
		// "data" absent or null still means an empty, valid result.
		return []Record{}, nil
	}
	return envelope.Data, nil
}

// IsRequestError reports whether err is a gateway failure and returns it.
func IsRequestError(err error) (*RequestError, bool) {
	var re *RequestError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
