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
	"fmt"

	relayerrors "github.com/sirseerhq/review-relay/internal/errors"
)

// MockClient is a mock implementation of the Client interface for testing.
// Pages are served in order regardless of the cursor; the cursor of each
// call is recorded for verification.
type MockClient struct {
	// Pages to return, one per FetchReviews call.
	Pages []*Page

	// Errors maps a 1-based call number to the error returned by that call.
	Errors map[int]error

	// PrimeError is returned by Prime.
	PrimeError error

	// Track calls for verification
	PrimeCount int
	CallCount  int
	LastTitle  string
	Opts       []FetchOptions
}

// NewMockClient creates a mock client serving pages.
func NewMockClient(pages ...*Page) *MockClient {
	return &MockClient{Pages: pages, Errors: map[int]error{}}
}

// Prime implements the Client interface.
func (m *MockClient) Prime(ctx context.Context, titleID string) error {
	m.PrimeCount++
	m.LastTitle = titleID
	return m.PrimeError
}

// FetchReviews implements the Client interface.
func (m *MockClient) FetchReviews(ctx context.Context, titleID string, opts FetchOptions) (*Page, error) {
	m.CallCount++
	m.LastTitle = titleID
	m.Opts = append(m.Opts, opts)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if err := m.Errors[m.CallCount]; err != nil {
		return nil, err
	}
	if m.CallCount > len(m.Pages) {
		return nil, fmt.Errorf("mock has no page %d: %w", m.CallCount, relayerrors.ErrUpstreamRequest)
	}
	return m.Pages[m.CallCount-1], nil
}

// MockPage builds a page from nodes. A non-empty next cursor marks the page
// as having a successor.
func MockPage(next string, nodes ...map[string]any) *Page {
	page := &Page{
		HasNextPage: next != "",
		EndCursor:   next,
		Nodes:       make([]any, 0, len(nodes)),
		Raw:         []byte(fmt.Sprintf(`{"data":{"title":{"reviews":{"cursor":%q}}}}`, next)),
	}
	for _, n := range nodes {
		page.Nodes = append(page.Nodes, n)
	}
	return page
}
