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

package testutil

import (
	"fmt"
	"time"
)

// ReviewNodeBuilder provides a fluent API for creating test review nodes
// shaped like the upstream's edges[].node.
type ReviewNodeBuilder struct {
	id        string
	author    *string
	rating    *int
	title     *string
	text      *string
	upVotes   *int
	downVotes *int
	date      *string
}

// NewReviewNodeBuilder creates a node builder with every field populated.
func NewReviewNodeBuilder(id string) *ReviewNodeBuilder {
	author := "user-" + id
	rating := 7
	title := fmt.Sprintf("Review %s", id)
	text := fmt.Sprintf("This is the body of review %s", id)
	up, down := 10, 2
	date := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
	return &ReviewNodeBuilder{
		id:        id,
		author:    &author,
		rating:    &rating,
		title:     &title,
		text:      &text,
		upVotes:   &up,
		downVotes: &down,
		date:      &date,
	}
}

// WithRating sets the author's rating.
func (b *ReviewNodeBuilder) WithRating(rating int) *ReviewNodeBuilder {
	b.rating = &rating
	return b
}

// WithoutRating removes the rating, as for reviews without a score.
func (b *ReviewNodeBuilder) WithoutRating() *ReviewNodeBuilder {
	b.rating = nil
	return b
}

// WithText sets the review body.
func (b *ReviewNodeBuilder) WithText(text string) *ReviewNodeBuilder {
	b.text = &text
	return b
}

// WithVotes sets the helpfulness votes.
func (b *ReviewNodeBuilder) WithVotes(up, down int) *ReviewNodeBuilder {
	b.upVotes = &up
	b.downVotes = &down
	return b
}

// Bare drops every field except the identifier.
func (b *ReviewNodeBuilder) Bare() *ReviewNodeBuilder {
	return &ReviewNodeBuilder{id: b.id}
}

// Build creates the node map.
func (b *ReviewNodeBuilder) Build() map[string]interface{} {
	node := map[string]interface{}{}
	if b.id != "" {
		node["id"] = b.id
	}
	if b.author != nil {
		node["author"] = map[string]interface{}{
			"username": map[string]interface{}{"text": *b.author},
		}
	}
	if b.rating != nil {
		node["rating"] = *b.rating
	}
	if b.title != nil {
		node["summary"] = map[string]interface{}{"originalText": *b.title}
	}
	if b.text != nil {
		node["text"] = map[string]interface{}{
			"originalText": map[string]interface{}{"plaidHtml": *b.text},
		}
	}
	if b.upVotes != nil || b.downVotes != nil {
		help := map[string]interface{}{}
		if b.upVotes != nil {
			help["upVotes"] = *b.upVotes
		}
		if b.downVotes != nil {
			help["downVotes"] = *b.downVotes
		}
		node["helpfulness"] = help
	}
	if b.date != nil {
		node["createdDate"] = *b.date
	}
	return node
}

// Nodes builds n nodes with identifiers prefix1..prefixN.
func Nodes(prefix string, from, to int) []map[string]interface{} {
	nodes := make([]map[string]interface{}, 0, to-from+1)
	for i := from; i <= to; i++ {
		nodes = append(nodes, NewReviewNodeBuilder(fmt.Sprintf("%s%d", prefix, i)).Build())
	}
	return nodes
}

// ReviewsResponseBuilder builds GraphQL review responses.
type ReviewsResponseBuilder struct {
	nodes       []map[string]interface{}
	hasNextPage bool
	endCursor   string
	errors      []map[string]interface{}
}

// NewReviewsResponseBuilder creates a new response builder.
func NewReviewsResponseBuilder() *ReviewsResponseBuilder {
	return &ReviewsResponseBuilder{
		nodes: []map[string]interface{}{},
	}
}

// WithNodes adds review nodes to the response.
func (b *ReviewsResponseBuilder) WithNodes(nodes ...map[string]interface{}) *ReviewsResponseBuilder {
	b.nodes = append(b.nodes, nodes...)
	return b
}

// WithPagination sets pagination info.
func (b *ReviewsResponseBuilder) WithPagination(hasNext bool, cursor string) *ReviewsResponseBuilder {
	b.hasNextPage = hasNext
	b.endCursor = cursor
	return b
}

// WithError adds an error to the response.
func (b *ReviewsResponseBuilder) WithError(message string) *ReviewsResponseBuilder {
	b.errors = append(b.errors, map[string]interface{}{
		"message": message,
	})
	return b
}

// Build creates the GraphQL response.
func (b *ReviewsResponseBuilder) Build() map[string]interface{} {
	if len(b.errors) > 0 {
		return map[string]interface{}{
			"data":   map[string]interface{}{"title": nil},
			"errors": b.errors,
		}
	}

	var cursor *string
	if b.endCursor != "" {
		cursor = &b.endCursor
	}

	edges := make([]map[string]interface{}, 0, len(b.nodes))
	for _, n := range b.nodes {
		edges = append(edges, map[string]interface{}{"node": n})
	}

	return map[string]interface{}{
		"data": map[string]interface{}{
			"title": map[string]interface{}{
				"reviews": map[string]interface{}{
					"edges": edges,
					"pageInfo": map[string]interface{}{
						"hasNextPage": b.hasNextPage,
						"endCursor":   cursor,
					},
				},
			},
		},
	}
}
