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

// Package review flattens raw review nodes from the IMDb GraphQL API into
// fixed-field records. Every field is optional: a broken lookup chain yields
// an absent value instead of an error, so one malformed node never stops a
// run.
package review

import (
	"encoding/json"

	"github.com/sirseerhq/review-relay/internal/output"
)

// Column names, in the default output order.
const (
	FieldReviewID         = "review_id"
	FieldAuthor           = "author"
	FieldRating           = "rating"
	FieldTitle            = "title"
	FieldText             = "text"
	FieldHelpfulUpvotes   = "helpful_upvotes"
	FieldHelpfulDownvotes = "helpful_downvotes"
	FieldDate             = "date"
)

// Columns is the default fixed schema.
var Columns = []string{
	FieldReviewID,
	FieldAuthor,
	FieldRating,
	FieldTitle,
	FieldText,
	FieldHelpfulUpvotes,
	FieldHelpfulDownvotes,
	FieldDate,
}

// Record is the flattened projection of one review node.
type Record struct {
	ReviewID         Optional[string]
	Author           Optional[string]
	Rating           Optional[json.Number]
	Title            Optional[string]
	Text             Optional[string]
	HelpfulUpvotes   Optional[json.Number]
	HelpfulDownvotes Optional[json.Number]
	Date             Optional[string]
}

// Extract maps a raw node onto a Record. It never fails.
func Extract(node any) Record {
	return Record{
		ReviewID:         Lookup(node, "id").String(),
		Author:           Lookup(node, "author", "username", "text").String(),
		Rating:           Lookup(node, "rating").Number(),
		Title:            Lookup(node, "summary", "originalText").String(),
		Text:             Lookup(node, "text", "originalText", "plaidHtml").String(),
		HelpfulUpvotes:   Lookup(node, "helpfulness", "upVotes").Number(),
		HelpfulDownvotes: Lookup(node, "helpfulness", "downVotes").Number(),
		Date:             Lookup(node, "createdDate").String(),
	}
}

// Row converts the record to an output row; absent fields become nil.
func (r Record) Row() output.Row {
	return output.Row{
		FieldReviewID:         r.ReviewID.Any(),
		FieldAuthor:           r.Author.Any(),
		FieldRating:           r.Rating.Any(),
		FieldTitle:            r.Title.Any(),
		FieldText:             r.Text.Any(),
		FieldHelpfulUpvotes:   r.HelpfulUpvotes.Any(),
		FieldHelpfulDownvotes: r.HelpfulDownvotes.Any(),
		FieldDate:             r.Date.Any(),
	}
}
