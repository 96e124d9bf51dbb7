// Package analysis sends rendered photos to a remote matching service.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"github.com/tstromberg/tvilling/pkg/metrics"
	"github.com/tstromberg/tvilling/pkg/render"
	"github.com/tstromberg/tvilling/pkg/tvilling"
)

// DefaultTimeout bounds a request when Config.Timeout is unset.
const DefaultTimeout = 60 * time.Second

var (
	// ErrNoPhotos is returned when Match is called without photos.
	ErrNoPhotos = errors.New("no photos to analyze")
	// ErrTimeout is returned when a request exceeds its time budget.
	ErrTimeout = errors.New("analysis request timed out")

	errSuperseded = errors.New("superseded by a newer analysis request")
	errCancelled  = errors.New("analysis cancelled")
)

// APIError is a non-success response from the matching service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Outcome is how a request ended.
type Outcome string

const (
	Success   Outcome = "success"
	Cancelled Outcome = "cancelled"
	TimedOut  Outcome = "timeout"
)

// Match is one candidate returned by the service.
type Match struct {
	Rank    int
	ID      string
	Rating  float64
	Details string
}

// Result is the outcome of a request. Matches are sorted by rank.
type Result struct {
	Outcome Outcome
	Matches []Match
}

// Config configures a Client.
type Config struct {
	Endpoint   string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks to the matching service. Only one request is in flight at a
// time: starting a new one cancels the previous.
type Client struct {
	cfg Config
	r   *render.Renderer
	hc  *http.Client

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelCauseFunc
}

// New returns a Client that renders uploads with r.
func New(cfg Config, r *render.Renderer) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{cfg: cfg, r: r, hc: hc}
}

// Cancel aborts the request in flight, if any.
func (c *Client) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		klog.Infof("cancelling analysis request")
		c.cancel(errCancelled)
	}
}

// begin registers a new request, cancelling the one before it.
func (c *Client) begin(ctx context.Context) (context.Context, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		klog.V(1).Infof("superseding analysis request %d", c.seq)
		c.cancel(errSuperseded)
	}
	ctx, cancel := context.WithCancelCause(ctx)
	c.seq++
	id := c.seq
	c.cancel = cancel

	return ctx, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.seq == id {
			c.cancel = nil
		}
		cancel(nil)
	}
}

// Match renders photos at analysis size and asks the service for candidate
// matches. A cancelled or superseded request returns a Cancelled result and no
// error; a request that runs out of time returns ErrTimeout.
func (c *Client) Match(ctx context.Context, photos []tvilling.PhotoBody) (*Result, error) {
	if len(photos) == 0 {
		return nil, ErrNoPhotos
	}

	ctx, done := c.begin(ctx)
	defer done()
	ctx, cancel := context.WithTimeoutCause(ctx, c.cfg.Timeout, ErrTimeout)
	defer cancel()

	body, ctype, err := c.encode(ctx, photos)
	if err != nil {
		return c.fail(ctx, err)
	}

	url := strings.TrimSuffix(c.cfg.Endpoint, "/") + "/match"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return c.fail(ctx, fmt.Errorf("request: %w", err))
	}
	req.Header.Set("Content-Type", ctype)
	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	klog.Infof("analyzing %d photos via %s (%d bytes)", len(photos), url, body.Len())
	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return c.fail(ctx, err)
	}
	defer resp.Body.Close()

	bs, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.fail(ctx, fmt.Errorf("read response: %w", err))
	}
	klog.V(1).Infof("%s returned %d in %s", url, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.fail(ctx, apiError(resp.StatusCode, bs))
	}

	ms, err := parseMatches(bs)
	if err != nil {
		return c.fail(ctx, err)
	}
	metrics.AnalysisRequests.WithLabelValues(string(Success)).Inc()
	return &Result{Outcome: Success, Matches: ms}, nil
}

// encode renders each photo into a multipart body, checking for cancellation
// between photos so that nothing is sent once the request is cancelled.
func (c *Client) encode(ctx context.Context, photos []tvilling.PhotoBody) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for _, p := range photos {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		bs, err := c.r.Analysis(p.Path(), p.Edits)
		if err != nil {
			return nil, "", err
		}

		name := strings.TrimSuffix(p.Name, filepath.Ext(p.Name)) + ".jpg"
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, name))
		h.Set("Content-Type", "image/jpeg")
		w, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create part: %w", err)
		}
		if _, err := w.Write(bs); err != nil {
			return nil, "", fmt.Errorf("write part: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

// fail classifies err: cancellation is a result, a timeout is ErrTimeout, and
// anything else is returned as is.
func (c *Client) fail(ctx context.Context, err error) (*Result, error) {
	switch cause := context.Cause(ctx); {
	case errors.Is(cause, ErrTimeout):
		klog.Warningf("analysis timed out after %s", c.cfg.Timeout)
		metrics.AnalysisRequests.WithLabelValues(string(TimedOut)).Inc()
		return &Result{Outcome: TimedOut}, ErrTimeout
	case cause != nil:
		klog.Infof("analysis request ended: %v", cause)
		metrics.AnalysisRequests.WithLabelValues(string(Cancelled)).Inc()
		return &Result{Outcome: Cancelled}, nil
	}
	metrics.AnalysisRequests.WithLabelValues("error").Inc()
	return nil, err
}

func apiError(status int, body []byte) *APIError {
	var e struct {
		Detail json.RawMessage `json:"detail"`
	}
	msg := fmt.Sprintf("HTTP %d", status)
	if json.Unmarshal(body, &e) == nil {
		var detail string
		if json.Unmarshal(e.Detail, &detail) == nil && detail != "" {
			msg = detail
		}
	}
	return &APIError{Status: status, Message: msg}
}

// wireMatch accepts both field spellings the service has used.
type wireMatch struct {
	Rank       int      `json:"rank"`
	ID         flexID   `json:"id"`
	Rating     *float64 `json:"rating"`
	Confidence *float64 `json:"confidence"`
	Details    string   `json:"details"`
	SourcePath string   `json:"source_path"`
}

// flexID decodes a string or numeric id.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

func parseMatches(bs []byte) ([]Match, error) {
	var resp struct {
		Matches []wireMatch `json:"matches"`
	}
	if err := json.Unmarshal(bs, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	ms := make([]Match, 0, len(resp.Matches))
	for _, w := range resp.Matches {
		m := Match{Rank: w.Rank, ID: string(w.ID), Details: w.Details}
		switch {
		case w.Rating != nil:
			m.Rating = *w.Rating
		case w.Confidence != nil:
			m.Rating = *w.Confidence
		}
		if m.Details == "" {
			m.Details = w.SourcePath
		}
		ms = append(ms, m)
	}
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].Rank < ms[j].Rank })
	return ms, nil
}
