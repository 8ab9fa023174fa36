// Package hub reads dataset rows from a datasets-server HTTP API.
package hub

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/MikeSquared-Agency/chatlens/internal/provider"
	"github.com/MikeSquared-Agency/chatlens/internal/record"
)

const (
	DefaultURL = "https://datasets-server.huggingface.co"

	// PageSize is the largest length the rows endpoint serves per request.
	PageSize = 100
)

// Client implements provider.RowSource over the /rows, /size and /splits
// endpoints.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Rows pages through /rows until length rows are read or the split ends.
func (c *Client) Rows(ctx context.Context, ds provider.Dataset, offset, length int) ([]record.Record, error) {
	if offset < 0 || length <= 0 {
		return nil, nil
	}
	ds, err := c.resolveConfig(ctx, ds)
	if err != nil {
		return nil, err
	}

	// consumed counts upstream rows, including ones skipped as malformed,
	// so the offset always advances.
	out := make([]record.Record, 0, min(length, PageSize))
	consumed := 0
	for consumed < length {
		page := min(PageSize, length-consumed)
		body, err := c.get(ctx, "/rows", url.Values{
			"dataset": {ds.ID},
			"config":  {ds.Config},
			"split":   {ds.Split},
			"offset":  {strconv.Itoa(offset + consumed)},
			"length":  {strconv.Itoa(page)},
		})
		if err != nil {
			return nil, err
		}

		rows := gjson.GetBytes(body, "rows")
		if !rows.IsArray() {
			return nil, fmt.Errorf("%w: rows of %s: missing rows array", provider.ErrDecodeFailure, ds)
		}
		n := 0
		rows.ForEach(func(_, row gjson.Result) bool {
			n++
			if r := row.Get("row"); r.IsObject() {
				out = append(out, record.FromResult(r))
			}
			return true
		})
		consumed += n
		if n == 0 || n < page {
			break
		}
	}
	return out, nil
}

// NumRows reads the split size from /size.
func (c *Client) NumRows(ctx context.Context, ds provider.Dataset) (int, error) {
	ds, err := c.resolveConfig(ctx, ds)
	if err != nil {
		return 0, err
	}
	body, err := c.get(ctx, "/size", url.Values{"dataset": {ds.ID}})
	if err != nil {
		return 0, err
	}

	found := false
	n := 0
	gjson.GetBytes(body, "size.splits").ForEach(func(_, s gjson.Result) bool {
		if s.Get("config").String() == ds.Config && s.Get("split").String() == ds.Split {
			n = int(s.Get("num_rows").Int())
			found = true
			return false
		}
		return true
	})
	if !found {
		return 0, fmt.Errorf("size of %s: %w", ds, provider.ErrSourceNotFound)
	}
	return n, nil
}

// Configs lists config names from /splits in first-seen order.
func (c *Client) Configs(ctx context.Context, id string) ([]string, error) {
	splits, err := c.splits(ctx, id)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	cfgs := []string{}
	for _, s := range splits {
		if !seen[s.Config] {
			seen[s.Config] = true
			cfgs = append(cfgs, s.Config)
		}
	}
	return cfgs, nil
}

// resolveConfig fills an empty config with the first config that has the
// requested split.
func (c *Client) resolveConfig(ctx context.Context, ds provider.Dataset) (provider.Dataset, error) {
	if ds.Config != "" {
		return ds, nil
	}
	splits, err := c.splits(ctx, ds.ID)
	if err != nil {
		return ds, err
	}
	for _, s := range splits {
		if s.Split == ds.Split {
			ds.Config = s.Config
			return ds, nil
		}
	}
	return ds, fmt.Errorf("split %q of %s: %w", ds.Split, ds.ID, provider.ErrSourceNotFound)
}

func (c *Client) splits(ctx context.Context, id string) ([]provider.Dataset, error) {
	body, err := c.get(ctx, "/splits", url.Values{"dataset": {id}})
	if err != nil {
		return nil, err
	}
	var out []provider.Dataset
	gjson.GetBytes(body, "splits").ForEach(func(_, s gjson.Result) bool {
		out = append(out, provider.Dataset{
			ID:     id,
			Config: s.Get("config").String(),
			Split:  s.Get("split").String(),
		})
		return true
	})
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hub call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s %s: %w", path, params.Get("dataset"), provider.ErrSourceNotFound)
	case resp.StatusCode != http.StatusOK:
		if msg := gjson.GetBytes(body, "error"); msg.Exists() {
			return nil, fmt.Errorf("hub error %d: %s", resp.StatusCode, msg.String())
		}
		return nil, fmt.Errorf("hub error %d: %s", resp.StatusCode, string(body))
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: %s: invalid json", provider.ErrDecodeFailure, path)
	}
	return body, nil
}
