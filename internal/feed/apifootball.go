package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// APIFootball queries the API-Football v3 fixtures endpoint with token-bucket
// rate limiting and exponential backoff on 429 and 5xx responses.
type APIFootball struct {
	http     *http.Client
	baseURL  string
	apiKey   string
	limiter  *rate.Limiter
	log      *slog.Logger
	baseWait time.Duration
}

// NewAPIFootball builds a client. ratePerSec of zero or less disables throttling.
func NewAPIFootball(baseURL, apiKey string, ratePerSec float64, log *slog.Logger) *APIFootball {
	limit := rate.Limit(ratePerSec)
	if ratePerSec <= 0 {
		limit = rate.Inf
	}
	return &APIFootball{
		http:     &http.Client{Timeout: 10 * time.Second},
		baseURL:  baseURL,
		apiKey:   apiKey,
		limiter:  rate.NewLimiter(limit, 1),
		log:      log,
		baseWait: baseRetryWait,
	}
}

type fixturesResponse struct {
	Errors   json.RawMessage `json:"errors"`
	Response []struct {
		Fixture struct {
			ID     int64 `json:"id"`
			Status struct {
				Short string `json:"short"`
			} `json:"status"`
		} `json:"fixture"`
		Teams struct {
			Home struct {
				Name string `json:"name"`
			} `json:"home"`
			Away struct {
				Name string `json:"name"`
			} `json:"away"`
		} `json:"teams"`
		Goals struct {
			Home *int `json:"home"`
			Away *int `json:"away"`
		} `json:"goals"`
	} `json:"response"`
}

func (c *APIFootball) Fixture(ctx context.Context, id string) (Fixture, error) {
	endpoint := c.baseURL + "/fixtures?" + url.Values{"id": {id}}.Encode()

	var body fixturesResponse
	if err := c.doWithRetry(ctx, endpoint, &body); err != nil {
		return Fixture{}, err
	}
	if providerErrors(body.Errors) {
		return Fixture{}, fmt.Errorf("%w: provider errors %s", ErrUnavailable, string(body.Errors))
	}
	if len(body.Response) == 0 {
		return Fixture{}, ErrFixtureNotFound
	}

	r := body.Response[0]
	f := Fixture{
		ID:       strconv.FormatInt(r.Fixture.ID, 10),
		Status:   r.Fixture.Status.Short,
		HomeTeam: r.Teams.Home.Name,
		AwayTeam: r.Teams.Away.Name,
	}
	if r.Goals.Home != nil {
		f.HomeScore = *r.Goals.Home
	}
	if r.Goals.Away != nil {
		f.AwayScore = *r.Goals.Away
	}
	if f.Finished() && (r.Goals.Home == nil || r.Goals.Away == nil) {
		return Fixture{}, fmt.Errorf("%w: fixture %s finished without a score", ErrUnavailable, id)
	}
	return f, nil
}

// providerErrors reports whether the "errors" field carries anything; the API
// sends an empty array on success and an object keyed by field on failure.
func providerErrors(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return true
	}
	switch e := v.(type) {
	case []any:
		return len(e) > 0
	case map[string]any:
		return len(e) > 0
	case nil:
		return false
	default:
		return true
	}
}

func (c *APIFootball) doWithRetry(ctx context.Context, endpoint string, out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: rate limiter: %v", ErrUnavailable, err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("x-apisports-key", c.apiKey)

		resp, err := c.http.Do(req)
		if err != nil {
			if attempt == maxRetries || ctx.Err() != nil {
				return fmt.Errorf("%w: request failed after %d attempts: %v", ErrUnavailable, attempt+1, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("%w: status %d after %d attempts", ErrUnavailable, resp.StatusCode, attempt+1)
			}
			c.log.Warn("match feed retry", "status", resp.StatusCode, "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			resp.Body.Close()
			return fmt.Errorf("%w: client error %d: %s", ErrUnavailable, resp.StatusCode, string(body))
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
		}
		return nil
	}
	return fmt.Errorf("%w: exhausted %d retries", ErrUnavailable, maxRetries)
}

func (c *APIFootball) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * c.baseWait
	wait += time.Duration(rand.Int64N(int64(c.baseWait)/2 + 1))
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
