// Package api fetches raw product and user payloads from a REST store API
// shaped like fakestoreapi.com.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/zeebo/xxh3"

	"omnicart/internal/datasource"
	"omnicart/internal/datasource/httpds"
	jsonparser "omnicart/internal/parser/json"
)

var _ datasource.RecordSource = (*Client)(nil)

// DefaultBaseURL is used when Config.BaseURL is empty.
const DefaultBaseURL = "https://fakestoreapi.com"

// Config describes the endpoints and paging of the store API.
type Config struct {
	BaseURL string
	// Limit is the page size sent as ?limit=.
	Limit int
	// MaxPages bounds pagination for servers that never return a short page.
	MaxPages int

	ProductsPath string
	UsersPath    string
	// ProductsKey and UsersKey name the envelope array when the API wraps
	// its results in an object. Empty means a bare array.
	ProductsKey string
	UsersKey    string
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Limit <= 0 {
		c.Limit = 5
	}
	if c.MaxPages <= 0 {
		c.MaxPages = 1000
	}
	if c.ProductsPath == "" {
		c.ProductsPath = "products"
	}
	if c.UsersPath == "" {
		c.UsersPath = "users"
	}
	return c
}

// Client is a Source backed by the store API.
type Client struct {
	http *httpds.Client
	cfg  Config
	log  logrus.FieldLogger
}

// New returns a Client. A nil logger discards output.
func New(hc *httpds.Client, cfg Config, log logrus.FieldLogger) *Client {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Client{http: hc, cfg: cfg.withDefaults(), log: log}
}

var jsonHeaders = http.Header{"Accept": {"application/json"}}

// FetchProducts walks /products?limit=L&page=N from page 1. It stops on an
// empty page, a page shorter than the limit, a page identical to one already
// seen, or after MaxPages. If a page fails, the products gathered so far are
// returned along with the error.
func (c *Client) FetchProducts(ctx context.Context) ([]any, error) {
	seen := make(map[uint64]int)
	var out []any

	for page := 1; page <= c.cfg.MaxPages; page++ {
		u, err := c.endpoint(c.cfg.ProductsPath, url.Values{
			"limit": {strconv.Itoa(c.cfg.Limit)},
			"page":  {strconv.Itoa(page)},
		})
		if err != nil {
			return out, err
		}

		body, err := c.http.GetBytes(ctx, u, jsonHeaders)
		if err != nil {
			return out, fmt.Errorf("api: products page %d: %w", page, err)
		}

		sum := xxh3.Hash(body)
		if first, dup := seen[sum]; dup {
			c.log.WithFields(logrus.Fields{"page": page, "same_as": first}).
				Debug("products page repeats an earlier page; server ignores paging")
			break
		}
		seen[sum] = page

		items, err := jsonparser.DecodeBytes(body, jsonparser.Options{AllowArrays: true, Envelope: c.cfg.ProductsKey})
		if err != nil {
			return out, fmt.Errorf("api: products page %d: %w", page, err)
		}
		c.log.WithFields(logrus.Fields{"page": page, "items": len(items)}).Debug("fetched products page")

		if len(items) == 0 {
			break
		}
		out = append(out, items...)
		if len(items) < c.cfg.Limit {
			break
		}
		if page == c.cfg.MaxPages {
			c.log.WithField("max_pages", c.cfg.MaxPages).Warn("stopped paging products at max_pages")
		}
	}
	return out, nil
}

// FetchUsers performs a single GET of the users endpoint.
func (c *Client) FetchUsers(ctx context.Context) ([]any, error) {
	u, err := c.endpoint(c.cfg.UsersPath, nil)
	if err != nil {
		return nil, err
	}
	body, err := c.http.GetBytes(ctx, u, jsonHeaders)
	if err != nil {
		return nil, fmt.Errorf("api: users: %w", err)
	}
	items, err := jsonparser.DecodeBytes(body, jsonparser.Options{AllowArrays: true, Envelope: c.cfg.UsersKey})
	if err != nil {
		return nil, fmt.Errorf("api: users: %w", err)
	}
	return items, nil
}

// ErrBaseURL is returned when the configured base URL cannot be used.
var ErrBaseURL = errors.New("api: invalid base url")

func (c *Client) endpoint(path string, q url.Values) (string, error) {
	base, err := url.Parse(c.cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrBaseURL, c.cfg.BaseURL)
	}
	u := base.JoinPath(path)
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
