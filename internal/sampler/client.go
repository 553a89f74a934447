package sampler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Client talks to a sampler service speaking the oddsmill fit protocol:
// POST /v1/fit with a FitRequest, FitResponse back. MCMC runs are
// long-running, so the HTTP timeout is generous and 429/5xx/transport errors
// are retried with capped exponential backoff.
type Client struct {
	httpClient       *http.Client
	baseURL          string
	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
}

// NewClient builds a client for the given base URL with custom timeout and
// retry/backoff behavior. Zero values fall back to defaults suitable for a
// local sampler bridge.
func NewClient(baseURL string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration) *Client {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8787"
	}
	if httpTimeout <= 0 {
		httpTimeout = 10 * time.Minute
	}
	if retryMax <= 0 {
		retryMax = 3
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 4 * time.Second
	}
	return &Client{
		httpClient:       &http.Client{Timeout: httpTimeout},
		baseURL:          baseURL,
		retryMaxAttempts: retryMax,
		retryBaseDelay:   baseDelay,
		retryMaxDelay:    maxDelay,
	}
}

// Fit submits one fit job and blocks until draws come back or the request
// fails. Each attempt carries a fresh X-Request-ID for service-side log
// correlation.
func (c *Client) Fit(ctx context.Context, req FitRequest) (*FitResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	endpoint := c.baseURL + "/v1/fit"

	maxAttempts := c.retryMaxAttempts
	backoff := c.retryBaseDelay

	var lastErr error
	var out FitResponse
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		requestID := uuid.NewString()
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("X-Request-ID", requestID)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			if isRetryableNetErr(err) && attempt < maxAttempts {
				lastErr = err
				time.Sleep(backoff)
				backoff *= 2
				continue
			}
			return nil, &UnreachableError{Host: hostOf(c.baseURL), Err: err}
		}
		func() {
			defer resp.Body.Close()
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
				var raw map[string]any
				_ = json.Unmarshal(body, &raw)
				apiErr := &APIError{StatusCode: resp.StatusCode, Raw: raw, RequestID: requestID}
				if msg, ok := raw["message"].(string); ok {
					apiErr.Message = msg
				}
				if code, ok := raw["code"].(string); ok {
					apiErr.Code = code
				}
				if (resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599)) && attempt < maxAttempts {
					if ra := resp.Header.Get("Retry-After"); ra != "" {
						if secs, err := parseRetryAfterSeconds(ra); err == nil && secs > 0 {
							lastErr = &RateLimitError{APIError: apiErr, RetryAfter: time.Duration(secs) * time.Second}
							time.Sleep(time.Duration(secs) * time.Second)
							return
						}
					}
					lastErr = apiErr
					sleep := withJitter(backoff)
					if c.retryMaxDelay > 0 && sleep > c.retryMaxDelay {
						sleep = c.retryMaxDelay
					}
					time.Sleep(sleep)
					backoff *= 2
					return
				}
				lastErr = classifyAPIError(apiErr, resp)
				return
			}
			out = FitResponse{}
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				lastErr = fmt.Errorf("decode response: %w", err)
				return
			}
			if err := validateResponse(&out); err != nil {
				lastErr = err
				return
			}
			out.RequestID = requestID
			lastErr = nil
		}()
		if lastErr == nil {
			return &out, nil
		}
		if attempt < maxAttempts {
			continue
		}
		break
	}
	return nil, lastErr
}

func validateRequest(req FitRequest) error {
	switch req.Formula {
	case FormulaInterceptOnly, FormulaPromotion, FormulaInteraction, FormulaMultilevel:
	default:
		return fmt.Errorf("unknown formula kind %q", req.Formula)
	}
	if len(req.Cells) == 0 {
		return errors.New("fit request has no aggregated cells")
	}
	if len(req.PromotionLevels) < 2 || len(req.ChannelLevels) < 2 {
		return errors.New("fit request must declare at least 2 levels per factor")
	}
	return nil
}

// validateResponse rejects a decoded body the prediction code could not use:
// no draws, or coefficients with mismatched draw counts.
func validateResponse(out *FitResponse) error {
	if len(out.Draws) == 0 {
		return errors.New("decode response: no posterior draws")
	}
	n := -1
	for name, d := range out.Draws {
		if len(d) == 0 {
			return fmt.Errorf("decode response: coefficient %q has no draws", name)
		}
		if n == -1 {
			n = len(d)
		} else if len(d) != n {
			return fmt.Errorf("decode response: coefficient %q has %d draws, others have %d", name, len(d), n)
		}
	}
	return nil
}

func hostOf(baseURL string) string {
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		return u.Host
	}
	return baseURL
}

func isRetryableNetErr(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) {
		if nerr.Timeout() {
			return true
		}
	}
	if errors.Is(err, io.EOF) {
		return true
	}
	return false
}

// parseRetryAfterSeconds interprets a Retry-After header as seconds or an
// HTTP date.
func parseRetryAfterSeconds(v string) (int, error) {
	if s, err := strconv.Atoi(v); err == nil {
		return s, nil
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return int(d.Seconds()), nil
	}
	return 0, fmt.Errorf("invalid Retry-After: %q", v)
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}

func classifyAPIError(apiErr *APIError, resp *http.Response) error {
	sc := apiErr.StatusCode
	if sc == http.StatusTooManyRequests {
		var ra time.Duration
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, err := parseRetryAfterSeconds(v); err == nil && secs > 0 {
				ra = time.Duration(secs) * time.Second
			}
		}
		return &RateLimitError{APIError: apiErr, RetryAfter: ra}
	}
	if sc == http.StatusBadRequest || sc == http.StatusUnprocessableEntity {
		return &BadRequestError{APIError: apiErr}
	}
	if sc >= 500 && sc <= 599 {
		return &ServerError{APIError: apiErr}
	}
	return apiErr
}
