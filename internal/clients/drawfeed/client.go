// Package drawfeed provides clients for the external draw-result feed:
// a polling REST client used by the sync job and a websocket subscriber
// for push delivery of fresh results.
package drawfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/lottokit/drawgen/internal/domain"
)

// Client polls the draw-result feed over REST. Implements
// domain.DrawSource.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new draw feed client. The API key is optional;
// public feeds run without one.
func NewClient(baseURL, apiKey string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
		log:     log.With().Str("client", "drawfeed").Logger(),
	}
}

// FetchDraws returns draws for the lottery with contest ids greater
// than sinceContest, oldest first. An empty slice means the feed has
// nothing newer.
func (c *Client) FetchDraws(ctx context.Context, lotteryID string, sinceContest int64) ([]domain.Draw, error) {
	endpoint := fmt.Sprintf("%s/v1/lotteries/%s/draws?since=%d",
		c.baseURL, url.PathEscape(lotteryID), sinceContest)
	c.log.Debug().Str("url", endpoint).Msg("Fetching draws")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d for %s", resp.StatusCode, lotteryID)
	}

	var payload []feedDraw
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to parse feed response: %w", err)
	}

	draws := make([]domain.Draw, 0, len(payload))
	for _, raw := range payload {
		draw, err := transformDraw(lotteryID, raw)
		if err != nil {
			return nil, err
		}
		if draw.ContestID <= sinceContest {
			continue
		}
		draws = append(draws, draw)
	}
	sort.Slice(draws, func(i, j int) bool {
		return draws[i].ContestID < draws[j].ContestID
	})

	c.log.Debug().
		Str("lottery_id", lotteryID).
		Int64("since", sinceContest).
		Int("draws", len(draws)).
		Msg("Fetched draws")
	return draws, nil
}
