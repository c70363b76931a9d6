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

// Package testutil provides common test helpers for review-relay
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// SessionCookie is the cookie set by the mock priming endpoint.
const SessionCookie = "session-id"

// GraphQLRequest is one recorded request to the mock GraphQL endpoint.
type GraphQLRequest struct {
	Header    http.Header
	Body      map[string]interface{}
	Variables map[string]interface{}
	After     string
	HasCookie bool
}

// ReviewServer mocks the review site: a priming page that sets a session
// cookie and a GraphQL endpoint that serves pages in cursor order. Page i
// (1-based) answers cursor "cursor-<i-1>" and returns "cursor-<i>".
type ReviewServer struct {
	*httptest.Server

	mu         sync.Mutex
	pages      [][]map[string]interface{}
	overrides  map[int]string
	failures   map[int]int
	requests   []GraphQLRequest
	primeCount int

	requireCookie bool
}

// NewReviewServer starts a mock serving the given pages of nodes.
func NewReviewServer(t *testing.T, pages ...[]map[string]interface{}) *ReviewServer {
	t.Helper()
	m := &ReviewServer{
		pages:     pages,
		overrides: map[int]string{},
		failures:  map[int]int{},
	}
	m.Server = httptest.NewServer(http.HandlerFunc(m.handle))
	t.Cleanup(m.Close)
	return m
}

// Endpoint returns the GraphQL endpoint URL.
func (m *ReviewServer) Endpoint() string {
	return m.URL + "/graphql"
}

// SiteURL returns the base URL for priming requests.
func (m *ReviewServer) SiteURL() string {
	return m.URL
}

// FailPage makes the given 1-based page answer with status.
func (m *ReviewServer) FailPage(page, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[page] = status
}

// OverridePage makes the given 1-based page answer with a literal body.
func (m *ReviewServer) OverridePage(page int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[page] = body
}

// RequireSessionCookie rejects GraphQL requests without the session cookie.
func (m *ReviewServer) RequireSessionCookie() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requireCookie = true
}

// Requests returns the recorded GraphQL requests.
func (m *ReviewServer) Requests() []GraphQLRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]GraphQLRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// PrimeCount returns how many priming requests were served.
func (m *ReviewServer) PrimeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.primeCount
}

func (m *ReviewServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/title/") {
		m.mu.Lock()
		m.primeCount++
		m.mu.Unlock()
		http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "test-session", Path: "/"})
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<html><body>reviews</body></html>")
		return
	}
	if r.Method != http.MethodPost || r.URL.Path != "/graphql" {
		http.NotFound(w, r)
		return
	}

	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	vars, _ := body["variables"].(map[string]interface{})
	after, _ := vars["after"].(string)
	_, cookieErr := r.Cookie(SessionCookie)

	m.mu.Lock()
	m.requests = append(m.requests, GraphQLRequest{
		Header:    r.Header.Clone(),
		Body:      body,
		Variables: vars,
		After:     after,
		HasCookie: cookieErr == nil,
	})
	page, ok := pageForCursor(after)
	status, fail := m.failures[page]
	override, overridden := m.overrides[page]
	requireCookie := m.requireCookie
	m.mu.Unlock()

	switch {
	case requireCookie && cookieErr != nil:
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, "missing session")
		return
	case !ok || page > len(m.pages) && !overridden && !fail:
		http.Error(w, fmt.Sprintf("unknown cursor %q", after), http.StatusBadRequest)
		return
	case fail:
		w.WriteHeader(status)
		_, _ = io.WriteString(w, http.StatusText(status))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if overridden {
		_, _ = io.WriteString(w, override)
		return
	}

	b := NewReviewsResponseBuilder().WithNodes(m.pages[page-1]...)
	if page < len(m.pages) {
		b.WithPagination(true, fmt.Sprintf("cursor-%d", page))
	}
	_ = json.NewEncoder(w).Encode(b.Build())
}

// pageForCursor maps "" to page 1 and "cursor-N" to page N+1.
func pageForCursor(after string) (int, bool) {
	if after == "" {
		return 1, true
	}
	var n int
	if _, err := fmt.Sscanf(after, "cursor-%d", &n); err != nil || n < 1 {
		return 0, false
	}
	return n + 1, true
}

// NewErrorServer creates a mock server that always returns the specified error
func NewErrorServer(t *testing.T, statusCode int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(statusCode)
		_, _ = w.Write([]byte(http.StatusText(statusCode)))
	}))
	t.Cleanup(server.Close)
	return server
}
