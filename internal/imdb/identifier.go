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
	"fmt"
	"regexp"
	"strings"

	relayerrors "github.com/sirseerhq/review-relay/internal/errors"
)

var titleIDPattern = regexp.MustCompile(`[a-z]{2}\d+`)

// ResolveTitleID returns the first substring of input made of two lowercase
// letters followed by one or more digits, e.g. "tt33014583" from a reviews
// URL. A bare identifier is accepted as-is.
func ResolveTitleID(input string) (string, error) {
	id := titleIDPattern.FindString(strings.TrimSpace(input))
	if id == "" {
		return "", fmt.Errorf("%q: %w", input, relayerrors.ErrInvalidInput)
	}
	return id, nil
}

// ReviewsURL returns the human-facing reviews page for a title.
func ReviewsURL(siteURL, titleID string) string {
	return strings.TrimRight(siteURL, "/") + "/title/" + titleID + "/reviews/"
}
