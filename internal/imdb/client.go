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
	"context"

	"github.com/sirseerhq/review-relay/internal/apierror"
)

// Client defines the interface for fetching reviews from the upstream.
// This interface allows for easy mocking in tests.
type Client interface {
	// Prime visits the title's reviews page to establish the anonymous
	// session cookies the API expects. A non-2xx answer is reported as an
	// *apierror.StatusError so callers may choose to continue.
	Prime(ctx context.Context, titleID string) error

	// FetchReviews retrieves one page of reviews for titleID. Cursor-based
	// pagination is driven through opts.After. Failures wrap one of the
	// sentinels in internal/errors.
	FetchReviews(ctx context.Context, titleID string, opts FetchOptions) (*Page, error)
}

// classify maps a fetch failure onto the sentinel errors.
func classify(inspector apierror.Inspector, err error) error {
	return apierror.Classify(inspector, err, "failed to fetch reviews")
}
