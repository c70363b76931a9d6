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
	"errors"
	"io"
	"net/http"

	"github.com/shurcooL/graphql"

	"github.com/sirseerhq/review-relay/internal/apierror"
)

// GraphQL input types. shurcooL/graphql derives variable type names from the
// Go type names.
type (
	// ReviewsSort is the sort input of the reviews connection.
	ReviewsSort struct {
		By    ReviewsSortBy `json:"by"`
		Order SortOrder     `json:"order"`
	}

	// ReviewsSortBy is a sort key, e.g. HELPFULNESS_SCORE.
	ReviewsSortBy string

	// SortOrder is ASC or DESC.
	SortOrder string

	// ReviewsFilter is the (empty) filter input of the reviews connection.
	ReviewsFilter struct{}

	// ID is the GraphQL ID scalar.
	ID string
)

// reviewsQuery selects the same node shape the persisted operation returns.
// Aliases map the schema's field names onto the persisted names.
type reviewsQuery struct {
	Title *struct {
		Reviews struct {
			Edges []struct {
				Node struct {
					ID     graphql.String
					Author *struct {
						Username *struct {
							Text graphql.String
						}
					}
					Rating  *graphql.Int `graphql:"rating: authorRating"`
					Summary *struct {
						OriginalText graphql.String
					}
					Text *struct {
						OriginalText *struct {
							PlaidHTML graphql.String `graphql:"plaidHtml"`
						}
					}
					Helpfulness *struct {
						UpVotes   graphql.Int
						DownVotes graphql.Int
					}
					CreatedDate *graphql.String `graphql:"createdDate: submissionDate"`
				}
			}
			PageInfo struct {
				HasNextPage graphql.Boolean
				EndCursor   *graphql.String
			}
		} `graphql:"reviews(first: $first, after: $after, sort: $sort, filter: $filter)"`
	} `graphql:"title(id: $const)"`
}

// InlineClient fetches reviews by sending the query text instead of a
// persisted-query hash. It is slower to serve upstream but keeps working when
// the frontend rotates its query hashes.
type InlineClient struct {
	*session
	client *graphql.Client
}

type inlineCallKey struct{}

// inlineCall carries per-request state through the transport.
type inlineCall struct {
	titleID string
	locale  string
	status  int
	body    []byte
}

// NewInlineClient creates a client that sends full GraphQL queries.
// A nil base transport uses a pooled http.Transport.
func NewInlineClient(opts Options, base http.RoundTripper) (*InlineClient, error) {
	s, err := newSession(opts, base)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{
		Jar:     s.http.Jar,
		Timeout: s.http.Timeout,
		Transport: &captureTransport{
			base:    s.http.Transport,
			session: s,
		},
	}
	return &InlineClient{
		session: s,
		client:  graphql.NewClient(opts.Endpoint, httpClient),
	}, nil
}

// FetchReviews fetches one page of reviews for titleID.
func (c *InlineClient) FetchReviews(ctx context.Context, titleID string, opts FetchOptions) (*Page, error) {
	opts = opts.withDefaults()

	variables := map[string]interface{}{
		"const":  ID(titleID),
		"first":  graphql.Int(int32(opts.PageSize)), // #nosec G115 - page size is validated by config
		"after":  (*graphql.String)(nil),
		"sort":   ReviewsSort{By: ReviewsSortBy(opts.Sort.By), Order: SortOrder(opts.Sort.Order)},
		"filter": ReviewsFilter{},
	}
	if opts.After != "" {
		after := graphql.String(opts.After)
		variables["after"] = &after
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	call := &inlineCall{titleID: titleID, locale: opts.Locale}
	ctx = context.WithValue(withOperation(ctx, "reviews"), inlineCallKey{}, call)

	var query reviewsQuery
	queryErr := c.client.Query(ctx, &query, variables)

	switch {
	case call.body == nil:
		if queryErr == nil {
			queryErr = errors.New("empty response")
		}
		return nil, classify(c.inspector, queryErr)
	case call.status < 200 || call.status > 299:
		return nil, classify(c.inspector, &apierror.StatusError{
			StatusCode: call.status,
			URL:        c.opts.Endpoint,
			Body:       excerpt(call.body),
		})
	}

	// The captured body is the source of truth: it is decoded the same way
	// persisted responses are, so both clients yield identical nodes.
	page, err := decodePage(call.body)
	if err != nil {
		return nil, classify(c.inspector, err)
	}
	if queryErr != nil {
		return nil, classify(c.inspector, &apierror.GraphQLError{Messages: []string{queryErr.Error()}})
	}
	return page, nil
}

// captureTransport sets the GraphQL headers for the title being fetched and
// records the response body while passing it through unchanged.
type captureTransport struct {
	base    http.RoundTripper
	session *session
}

// RoundTrip implements http.RoundTripper.
func (t *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	call, _ := req.Context().Value(inlineCallKey{}).(*inlineCall)
	if call == nil {
		return t.base.RoundTrip(req)
	}

	req = req.Clone(req.Context())
	t.session.graphqlHeaders(req.Header, call.titleID, call.locale)

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	call.status = resp.StatusCode
	call.body = body
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}
