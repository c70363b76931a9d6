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
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirseerhq/review-relay/internal/apierror"
	relayerrors "github.com/sirseerhq/review-relay/internal/errors"
)

// reviewsEnvelope mirrors data.title.reviews. Pointers distinguish a missing
// level from an empty one.
type reviewsEnvelope struct {
	Data *struct {
		Title *struct {
			Reviews *struct {
				Edges *[]struct {
					Node any `json:"node"`
				} `json:"edges"`
				PageInfo *struct {
					HasNextPage *bool   `json:"hasNextPage"`
					EndCursor   *string `json:"endCursor"`
				} `json:"pageInfo"`
			} `json:"reviews"`
		} `json:"title"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// decodePage parses a raw response body into a Page. GraphQL errors without
// usable data are upstream failures; any missing level of the expected shape
// is a malformed response.
func decodePage(raw []byte) (*Page, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var env reviewsEnvelope
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %v: %w", err, relayerrors.ErrMalformedResponse)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("trailing data after JSON body: %w", relayerrors.ErrMalformedResponse)
	}

	if env.Data == nil || env.Data.Title == nil || env.Data.Title.Reviews == nil {
		if len(env.Errors) > 0 {
			gqlErr := &apierror.GraphQLError{}
			for _, e := range env.Errors {
				gqlErr.Messages = append(gqlErr.Messages, e.Message)
			}
			return nil, fmt.Errorf("%w: %w", gqlErr, relayerrors.ErrUpstreamRequest)
		}
		return nil, fmt.Errorf("missing data.title.reviews: %w", relayerrors.ErrMalformedResponse)
	}

	reviews := env.Data.Title.Reviews
	if reviews.Edges == nil {
		return nil, fmt.Errorf("missing reviews.edges: %w", relayerrors.ErrMalformedResponse)
	}
	if reviews.PageInfo == nil || reviews.PageInfo.HasNextPage == nil {
		return nil, fmt.Errorf("missing reviews.pageInfo.hasNextPage: %w", relayerrors.ErrMalformedResponse)
	}

	page := &Page{
		Nodes:       make([]any, 0, len(*reviews.Edges)),
		HasNextPage: *reviews.PageInfo.HasNextPage,
		Raw:         json.RawMessage(raw),
	}
	if reviews.PageInfo.EndCursor != nil {
		page.EndCursor = *reviews.PageInfo.EndCursor
	}
	for _, edge := range *reviews.Edges {
		page.Nodes = append(page.Nodes, edge.Node)
	}
	return page, nil
}
