package azure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vbonduro/floodzone/internal/domain"
)

const (
	DefaultBaseURL = "https://atlas.microsoft.com"
	apiVersion     = "1.0"

	addressPath = "/search/address/json"
	fuzzyPath   = "/search/fuzzy/json"
	reversePath = "/search/address/reverse/json"
)

type searchResponse struct {
	Results []domain.SearchResult `json:"results"`
}

type reverseResponse struct {
	Addresses []struct {
		Address domain.Address `json:"address"`
	} `json:"addresses"`
}

// Gateway talks to the Azure Maps search API with a subscription key.
type Gateway struct {
	key     string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewGateway(key, baseURL string, timeout time.Duration, logger *slog.Logger) *Gateway {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		key:     key,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (g *Gateway) Autocomplete(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	params := url.Values{
		"query":     {query},
		"typeahead": {"true"},
		"limit":     {strconv.Itoa(limit)},
	}
	var resp searchResponse
	if err := g.get(ctx, addressPath, params, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (g *Gateway) Fuzzy(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	params := url.Values{
		"query": {strings.TrimSpace(query)},
		"limit": {strconv.Itoa(limit)},
	}
	var resp searchResponse
	if err := g.get(ctx, fuzzyPath, params, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Reverse returns nil, nil when the provider has no address for the point.
func (g *Gateway) Reverse(ctx context.Context, at domain.Coordinate) (*domain.Address, error) {
	params := url.Values{
		"query": {strconv.FormatFloat(at.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(at.Longitude, 'f', -1, 64)},
	}
	var resp reverseResponse
	if err := g.get(ctx, reversePath, params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Addresses) == 0 {
		return nil, nil
	}
	addr := resp.Addresses[0].Address
	return &addr, nil
}

func (g *Gateway) get(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("api-version", apiVersion)
	params.Set("subscription-key", g.key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-ms-client-request-id", uuid.NewString())

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call azure maps: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			g.logger.Error("failed to close azure maps response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("azure maps returned status %d: %s", resp.StatusCode, errBody)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
