// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package imdb

import (
	"encoding/json"
	"time"
)

// Page is one fetched page of reviews. Nodes are the raw edges[].node values
// in upstream order, decoded with json.Number for numbers. EndCursor is only
// meaningful when HasNextPage is true.
type Page struct {
	Nodes       []any
	HasNextPage bool
	EndCursor   string

	// Raw is the response body exactly as received.
	Raw json.RawMessage
}

// Sort is the server-side ordering of reviews.
type Sort struct {
	By    string `json:"by" yaml:"by"`
	Order string `json:"order" yaml:"order"`
}

// FetchOptions configures how a page of reviews is fetched.
type FetchOptions struct {
	// After is the opaque cursor from the previous page. Empty fetches the
	// first page.
	After string

	// PageSize is the number of reviews per page. Defaults to 25.
	PageSize int

	Sort   Sort
	Locale string
}

// Default values for fetch operations.
const (
	DefaultPageSize = 25
	DefaultLocale   = "en-US"

	SortByHelpfulness = "HELPFULNESS_SCORE"
	SortDescending    = "DESC"
)

// DefaultSort orders reviews by helpfulness score, most helpful first.
func DefaultSort() Sort {
	return Sort{By: SortByHelpfulness, Order: SortDescending}
}

func (o FetchOptions) withDefaults() FetchOptions {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.Sort.By == "" {
		o.Sort.By = SortByHelpfulness
	}
	if o.Sort.Order == "" {
		o.Sort.Order = SortDescending
	}
	if o.Locale == "" {
		o.Locale = DefaultLocale
	}
	return o
}

// Options configures the HTTP session shared by both clients.
type Options struct {
	// Endpoint is the GraphQL endpoint URL.
	Endpoint string

	// SiteURL is the human-facing site used for the priming request and
	// the Origin/Referer headers.
	SiteURL string

	UserAgent      string
	AcceptLanguage string

	// OperationName and QueryHash identify the persisted query.
	OperationName string
	QueryHash     string

	// Timeout bounds every single request.
	Timeout time.Duration

	// RequestsPerSecond caps the request rate. Zero means unlimited.
	RequestsPerSecond float64

	// MaxResponseBytes caps the size of a response body.
	MaxResponseBytes int64

	// Observer, when set, is told about every completed request.
	Observer Observer
}

// Observer receives request outcomes, typically for metrics.
type Observer interface {
	ObserveRequest(operation string, statusCode int, elapsed time.Duration)
}

// Defaults for Options.
const (
	DefaultEndpoint       = "https://caching.graphql.imdb.com/"
	DefaultSiteURL        = "https://www.imdb.com"
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"
	DefaultAcceptLanguage = "en-US,en;q=0.9"
	DefaultOperationName  = "TitleReviewsRefine"
	DefaultQueryHash      = "d389bc70c27f09c00b663705f0112254e8a7c75cde1cfd30e63a2d98c1080c87"
	DefaultTimeout        = 30 * time.Second
	DefaultMaxResponse    = 10 * 1024 * 1024
)

// DefaultOptions returns the settings the IMDb web frontend uses.
func DefaultOptions() Options {
	return Options{
		Endpoint:         DefaultEndpoint,
		SiteURL:          DefaultSiteURL,
		UserAgent:        DefaultUserAgent,
		AcceptLanguage:   DefaultAcceptLanguage,
		OperationName:    DefaultOperationName,
		QueryHash:        DefaultQueryHash,
		Timeout:          DefaultTimeout,
		MaxResponseBytes: DefaultMaxResponse,
	}
}
