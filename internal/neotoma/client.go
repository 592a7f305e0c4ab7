// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package neotoma talks to the Neotoma paleoecology API: it pages through the
// dataset listing to collect identifiers and fetches per-dataset detail.
package neotoma

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/pdiddy/neotoma-env/internal/httputil"
	"github.com/pdiddy/neotoma-env/pkg/types"
)

// Detail lookup failures. Transport errors are returned unwrapped.
var (
	// ErrBadStatus means the detail endpoint answered with a non-200 status.
	ErrBadStatus = errors.New("bad response status")

	// ErrNoData means the payload has no "data" key or an empty "data" list.
	ErrNoData = errors.New("no data in response")

	// ErrMalformed means the payload could not be interpreted.
	ErrMalformed = errors.New("malformed response")
)

// Client queries the Neotoma v2.0 API.
type Client struct {
	HTTP      *http.Client
	BaseURL   string
	UserAgent string
}

// NewClient returns a client for the API described by cfg.
func NewClient(cfg types.HTTPConfig) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = types.DefaultBaseURL
	}
	return &Client{
		HTTP:      &http.Client{Timeout: cfg.Timeout},
		BaseURL:   strings.TrimRight(base, "/"),
		UserAgent: cfg.UserAgent,
	}
}

// PageStatus describes how a listing page was interpreted.
type PageStatus int

const (
	// PageOK means the page carried a non-empty data list.
	PageOK PageStatus = iota
	// PageMalformed means the body was not valid JSON.
	PageMalformed
	// PageNoDataKey means the top-level "data" key was absent.
	PageNoDataKey
	// PageEmpty means "data" was present but held no entries.
	PageEmpty
)

func (s PageStatus) String() string {
	switch s {
	case PageOK:
		return "ok"
	case PageMalformed:
		return "malformed body"
	case PageNoDataKey:
		return "'data' key not found"
	case PageEmpty:
		return "no more data returned"
	default:
		return "unknown"
	}
}

// Page is one response from the dataset listing endpoint.
type Page struct {
	Status     PageStatus
	StatusCode int
	// Entries is the number of site entries in the data list.
	Entries int
	// IDs holds every datasetid found under site.datasets, in page order.
	IDs []types.DatasetID
}

// ListDatasets fetches one page of the dataset listing.
func (c *Client) ListDatasets(ctx context.Context, offset, limit int) (Page, error) {
	params := url.Values{
		"offset": {strconv.Itoa(offset)},
		"limit":  {strconv.Itoa(limit)},
	}
	reqURL := c.BaseURL + "/data/datasets?" + params.Encode()

	resp, err := httputil.Get(ctx, c.client(), reqURL, c.UserAgent)
	if err != nil {
		return Page{}, fmt.Errorf("Neotoma listing request: %w", err)
	}
	return parsePage(resp.StatusCode, resp.Body), nil
}

func parsePage(statusCode int, body []byte) Page {
	p := Page{StatusCode: statusCode}
	if !gjson.ValidBytes(body) {
		p.Status = PageMalformed
		return p
	}
	data := gjson.GetBytes(body, "data")
	if !data.Exists() {
		p.Status = PageNoDataKey
		return p
	}
	if !data.IsArray() || len(data.Array()) == 0 {
		p.Status = PageEmpty
		return p
	}

	data.ForEach(func(_, entry gjson.Result) bool {
		p.Entries++
		datasets := entry.Get("site.datasets")
		if !datasets.IsArray() {
			return true
		}
		datasets.ForEach(func(_, ds gjson.Result) bool {
			if id, ok := datasetID(ds.Get("datasetid")); ok {
				p.IDs = append(p.IDs, id)
			}
			return true
		})
		return true
	})
	p.Status = PageOK
	return p
}

// datasetID converts a datasetid JSON value. Nulls and non-scalar values
// are rejected.
func datasetID(r gjson.Result) (types.DatasetID, bool) {
	switch r.Type {
	case gjson.Number:
		return types.NumberID(r.Raw), true
	case gjson.String:
		return types.StringID(r.Str), true
	default:
		return types.DatasetID{}, false
	}
}

// Detail is the part of a dataset record the index needs.
type Detail struct {
	// Environment is the raw depositionalenvironment value.
	Environment string
	// HasEnvironment is false when the field is missing or null.
	HasEnvironment bool
}

// Dataset fetches the detail record for id. It returns ErrBadStatus,
// ErrNoData, or ErrMalformed (wrapped) when the response cannot supply an
// environment, and the transport error when the request itself fails.
func (c *Client) Dataset(ctx context.Context, id types.DatasetID) (Detail, error) {
	reqURL := c.BaseURL + "/data/datasets/" + url.PathEscape(id.String())

	resp, err := httputil.Get(ctx, c.client(), reqURL, c.UserAgent)
	if err != nil {
		return Detail{}, fmt.Errorf("Neotoma detail request: %w", err)
	}
	if !resp.OK() {
		return Detail{}, fmt.Errorf("%w: HTTP %d", ErrBadStatus, resp.StatusCode)
	}
	return parseDetail(resp.Body)
}

func parseDetail(body []byte) (Detail, error) {
	if !gjson.ValidBytes(body) {
		return Detail{}, fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}
	data := gjson.GetBytes(body, "data")
	if !data.Exists() {
		return Detail{}, fmt.Errorf("%w: no 'data' key", ErrNoData)
	}
	if !data.IsArray() {
		return Detail{}, fmt.Errorf("%w: 'data' is %s, not a list", ErrMalformed, data.Type)
	}
	items := data.Array()
	if len(items) == 0 {
		return Detail{}, fmt.Errorf("%w: 'data' is an empty list", ErrNoData)
	}

	env := items[0].Get("site.collectionunit.depositionalenvironment")
	switch env.Type {
	case gjson.Null:
		// Covers both a missing field and an explicit null.
		return Detail{}, nil
	case gjson.String:
		return Detail{Environment: env.Str, HasEnvironment: true}, nil
	default:
		return Detail{}, fmt.Errorf("%w: depositionalenvironment is %s, not a string", ErrMalformed, env.Type)
	}
}

// Total returns the dataset count the API reports for the listing. The
// second value is false when the response carries no total.
func (c *Client) Total(ctx context.Context) (int, bool, error) {
	reqURL := c.BaseURL + "/data/datasets?limit=1"

	resp, err := httputil.Get(ctx, c.client(), reqURL, c.UserAgent)
	if err != nil {
		return 0, false, fmt.Errorf("Neotoma total request: %w", err)
	}
	if !resp.OK() || !gjson.ValidBytes(resp.Body) {
		return 0, false, nil
	}
	total := gjson.GetBytes(resp.Body, "total")
	if total.Type != gjson.Number {
		return 0, false, nil
	}
	return int(total.Int()), true, nil
}

func (c *Client) client() *http.Client {
	if c.HTTP == nil {
		return http.DefaultClient
	}
	return c.HTTP
}
