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
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/sirseerhq/review-relay/internal/apierror"
)

// limitedReader wraps a ReadCloser with a size limit to prevent excessive memory usage.
type limitedReader struct {
	io.ReadCloser
	limit int64
	read  int64
}

// Read implements io.Reader with size limit enforcement.
func (lr *limitedReader) Read(p []byte) (n int, err error) {
	if lr.read >= lr.limit {
		return 0, fmt.Errorf("response size exceeded limit of %d bytes", lr.limit)
	}

	remaining := lr.limit - lr.read
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}

	n, err = lr.ReadCloser.Read(p)
	lr.read += int64(n)

	return n, err
}

// browserTransport adds the headers of an anonymous browser session,
// instruments the request and applies the response size limit.
type browserTransport struct {
	base      http.RoundTripper
	userAgent string
	language  string
	maxBody   int64
	observer  Observer
}

type operationKey struct{}

// withOperation labels a request for the observer.
func withOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, operationKey{}, op)
}

// RoundTrip implements http.RoundTripper.
func (t *browserTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid modifying the original
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("Accept-Language", t.language)

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	if t.observer != nil {
		op, _ := req.Context().Value(operationKey{}).(string)
		if op == "" {
			op = "unknown"
		}
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.observer.ObserveRequest(op, status, time.Since(start))
	}
	if err != nil {
		return nil, err
	}

	if resp.Body != nil && t.maxBody > 0 {
		resp.Body = &limitedReader{
			ReadCloser: resp.Body,
			limit:      t.maxBody,
		}
	}
	return resp, nil
}

// session is the anonymous HTTP session shared by both clients.
type session struct {
	http      *http.Client
	opts      Options
	limiter   *rate.Limiter
	inspector apierror.Inspector
}

func newSession(opts Options, base http.RoundTripper) (*session, error) {
	if base == nil {
		base = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        4,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
		}
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	s := &session{
		http: &http.Client{
			Jar:     jar,
			Timeout: opts.Timeout,
			Transport: &browserTransport{
				base:      base,
				userAgent: opts.UserAgent,
				language:  opts.AcceptLanguage,
				maxBody:   opts.MaxResponseBytes,
				observer:  opts.Observer,
			},
		},
		opts:      opts,
		inspector: apierror.NewInspector(),
	}
	if opts.RequestsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return s, nil
}

// wait blocks until the request cap admits another request.
func (s *session) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}

// Prime issues the anonymous GET of the title's reviews page.
func (s *session) Prime(ctx context.Context, titleID string) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	url := ReviewsURL(s.opts.SiteURL, titleID)
	req, err := http.NewRequestWithContext(withOperation(ctx, "prime"), http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build priming request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := s.http.Do(req)
	if err != nil {
		return apierror.Classify(s.inspector, err, "priming session")
	}
	defer resp.Body.Close()
	// Drain so the connection is reused; the page content is not needed.
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &apierror.StatusError{StatusCode: resp.StatusCode, URL: url}
	}
	return nil
}

// graphqlHeaders sets the headers the web frontend sends to the GraphQL
// endpoint. The locale travels as a header so that inline queries, which
// have no locale variable, are localized the same way persisted ones are.
func (s *session) graphqlHeaders(h http.Header, titleID, locale string) {
	h.Set("Accept", "application/graphql+json, application/json")
	h.Set("Content-Type", "application/json")
	h.Set("Origin", s.opts.SiteURL)
	h.Set("Referer", ReviewsURL(s.opts.SiteURL, titleID))
	h.Set("x-imdb-client-name", "imdb-web-next")
	h.Set("x-imdb-client-version", "1.0.0")
	if locale != "" {
		h.Set("x-imdb-user-language", locale)
		if _, country, ok := strings.Cut(locale, "-"); ok && country != "" {
			h.Set("x-imdb-user-country", strings.ToUpper(country))
		}
	}
}

// readBody reads a response body, reporting non-2xx statuses as
// *apierror.StatusError with a short excerpt of the body.
func readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &apierror.StatusError{
			StatusCode: resp.StatusCode,
			URL:        resp.Request.URL.String(),
			Body:       excerpt(body),
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// excerpt returns the first 200 bytes of a body for error messages.
func excerpt(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) > 200 {
		body = body[:200]
	}
	return string(body)
}
