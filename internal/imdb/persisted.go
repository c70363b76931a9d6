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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// PersistedClient fetches reviews with the persisted TitleReviewsRefine
// operation, identified by its query hash.
type PersistedClient struct {
	*session
}

// NewPersistedClient creates a client for the persisted-query endpoint.
// A nil base transport uses a pooled http.Transport.
func NewPersistedClient(opts Options, base http.RoundTripper) (*PersistedClient, error) {
	s, err := newSession(opts, base)
	if err != nil {
		return nil, err
	}
	return &PersistedClient{session: s}, nil
}

type persistedRequest struct {
	OperationName string             `json:"operationName"`
	Variables     reviewVariables    `json:"variables"`
	Extensions    persistedExtension `json:"extensions"`
}

type reviewVariables struct {
	After  *string  `json:"after"`
	Const  string   `json:"const"`
	Filter struct{} `json:"filter"`
	First  int      `json:"first"`
	Locale string   `json:"locale"`
	Sort   Sort     `json:"sort"`
}

type persistedExtension struct {
	PersistedQuery struct {
		Sha256Hash string `json:"sha256Hash"`
		Version    int    `json:"version"`
	} `json:"persistedQuery"`
}

// newPersistedRequest builds the request payload. An empty cursor is sent
// as null.
func newPersistedRequest(operation, hash, titleID string, opts FetchOptions) persistedRequest {
	req := persistedRequest{
		OperationName: operation,
		Variables: reviewVariables{
			Const:  titleID,
			First:  opts.PageSize,
			Locale: opts.Locale,
			Sort:   opts.Sort,
		},
	}
	if opts.After != "" {
		after := opts.After
		req.Variables.After = &after
	}
	req.Extensions.PersistedQuery.Sha256Hash = hash
	req.Extensions.PersistedQuery.Version = 1
	return req
}

// FetchReviews fetches one page of reviews for titleID.
func (c *PersistedClient) FetchReviews(ctx context.Context, titleID string, opts FetchOptions) (*Page, error) {
	opts = opts.withDefaults()

	payload, err := json.Marshal(newPersistedRequest(c.opts.OperationName, c.opts.QueryHash, titleID, opts))
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(withOperation(ctx, "reviews"), http.MethodPost, c.opts.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	c.graphqlHeaders(req.Header, titleID, opts.Locale)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.mapError(err)
	}
	defer resp.Body.Close()

	raw, err := readBody(resp)
	if err != nil {
		return nil, c.mapError(err)
	}

	page, err := decodePage(raw)
	if err != nil {
		return nil, c.mapError(err)
	}
	return page, nil
}

func (c *PersistedClient) mapError(err error) error {
	return classify(c.inspector, err)
}
