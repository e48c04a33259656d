// Package wiki fetches item metadata from a MediaWiki API and implements
// itemvalue.Fetcher.
package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/DrumSongOSRS/DropRoller/internal/config"
	"github.com/DrumSongOSRS/DropRoller/internal/itemvalue"
)

// ErrUnavailable wraps transport failures and unexpected responses.
var ErrUnavailable = errors.New("wiki unavailable")

// maxBody caps how much of a page response is read.
const maxBody = 4 << 20

// Client calls the MediaWiki parse API.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

// NewClient builds a Client from cfg.
//
// Precondition: cfg.BaseURL must be non-empty and cfg.Timeout positive.
func NewClient(cfg config.WikiConfig) *Client {
	return &Client{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		http:      &http.Client{Timeout: cfg.Timeout},
	}
}

type parseResponse struct {
	Parse *struct {
		Title    string `json:"title"`
		Wikitext string `json:"wikitext"`
	} `json:"parse"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

// Wikitext returns the raw wikitext of the page titled name. found is false
// when the page does not exist.
func (c *Client) Wikitext(ctx context.Context, name string) (text string, found bool, err error) {
	q := url.Values{}
	q.Set("action", "parse")
	q.Set("page", name)
	q.Set("prop", "wikitext")
	q.Set("format", "json")
	q.Set("formatversion", "2")
	q.Set("redirects", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", false, fmt.Errorf("building request for %q: %w", name, err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("fetching %q: %w: %v", name, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("fetching %q: status %d: %w", name, resp.StatusCode, ErrUnavailable)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", false, fmt.Errorf("reading %q: %w: %v", name, ErrUnavailable, err)
	}
	var data parseResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return "", false, fmt.Errorf("decoding %q: %w: %v", name, ErrUnavailable, err)
	}

	if data.Error != nil {
		if data.Error.Code == "missingtitle" || data.Error.Code == "invalidtitle" {
			return "", false, nil
		}
		return "", false, fmt.Errorf("fetching %q: api error %s: %w", name, data.Error.Code, ErrUnavailable)
	}
	if data.Parse == nil {
		return "", false, nil
	}
	return data.Parse.Wikitext, true, nil
}

// Fetch resolves the high alch value and bars used for name. A missing page
// yields empty Values and a nil error.
func (c *Client) Fetch(ctx context.Context, name string) (itemvalue.Values, error) {
	text, found, err := c.Wikitext(ctx, name)
	if err != nil {
		return itemvalue.Values{}, err
	}
	if !found {
		return itemvalue.Values{}, nil
	}
	return itemvalue.Values{
		HighAlch: ExtractHighAlch(text),
		BarsUsed: ExtractBarsUsed(text),
	}, nil
}
