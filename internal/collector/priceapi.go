package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/vaskrneup/NepseTools/internal/model"
)

// PriceAPIFetcher implements Fetcher against the share-price REST endpoint.
// Requests are rate limited so a multi-day backfill does not hammer the
// upstream site.
type PriceAPIFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	Limiter *rate.Limiter
}

// NewPriceAPIFetcher creates a fetcher with optional proxy support.
func NewPriceAPIFetcher(baseURL, apiKey, proxyURL string, timeout time.Duration) *PriceAPIFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PriceAPIFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		Limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
	}
}

func (f *PriceAPIFetcher) Name() string { return "priceapi" }

func (f *PriceAPIFetcher) FetchDay(ctx context.Context, date time.Time) ([]model.PriceObservation, error) {
	if err := f.Limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/api/v1/prices?date=%s", f.BaseURL, date.Format(model.DateLayout))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch prices: %w", err)
	}
	defer resp.Body.Close()

	// The endpoint answers 404 for sessions it has no sheet for: holidays,
	// weekends, or a date not yet published.
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetch prices: status %d, body: %s", resp.StatusCode, string(body))
	}

	var rows []model.PriceObservation
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode prices: %w", err)
	}

	dateText := date.Format(model.DateLayout)
	for i := range rows {
		if rows[i].Date == "" {
			rows[i].Date = dateText
		}
		if rows[i].Time == "" {
			rows[i].Time = "00:00:00"
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].SNo < rows[j].SNo })
	return rows, nil
}
