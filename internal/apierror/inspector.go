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

package apierror

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	relayerrors "github.com/sirseerhq/review-relay/internal/errors"
)

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s returned %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// IsBlockedError reports whether the status indicates the request was refused
// by the upstream's bot protection or throttling.
func (e *StatusError) IsBlockedError() bool {
	return e.StatusCode == http.StatusForbidden || e.StatusCode == http.StatusTooManyRequests
}

// IsNotFoundError reports whether the status is 404.
func (e *StatusError) IsNotFoundError() bool {
	return e.StatusCode == http.StatusNotFound
}

// GraphQLError carries the messages of a GraphQL "errors" array.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return "graphql: " + strings.Join(e.Messages, "; ")
}

// Inspector defines methods for identifying specific types of upstream errors.
type Inspector interface {
	// IsBlockedError returns true if the upstream refused the request (403/429,
	// captcha or WAF challenge).
	IsBlockedError(err error) bool

	// IsNotFoundError returns true if the title or endpoint does not exist.
	IsNotFoundError(err error) bool

	// IsGraphQLError returns true if the response carried GraphQL errors.
	IsGraphQLError(err error) bool

	// IsNetworkError returns true if the error represents a network connectivity error.
	IsNetworkError(err error) bool
}

// ReviewAPIInspector implements Inspector for the review API. It checks the
// error chain first and falls back to message matching for errors produced
// by libraries that only expose strings.
type ReviewAPIInspector struct{}

// NewInspector creates a new ReviewAPIInspector.
func NewInspector() Inspector {
	return &ReviewAPIInspector{}
}

// IsBlockedError checks if the upstream refused or throttled the request.
func (i *ReviewAPIInspector) IsBlockedError(err error) bool {
	if err == nil {
		return false
	}
	var blocked interface{ IsBlockedError() bool }
	if errors.As(err, &blocked) {
		return blocked.IsBlockedError()
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "403 forbidden") ||
		strings.Contains(errStr, "429 too many requests") ||
		strings.Contains(errStr, "captcha")
}

// IsNotFoundError checks if the error is a not found error.
func (i *ReviewAPIInspector) IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var notFound interface{ IsNotFoundError() bool }
	if errors.As(err, &notFound) {
		return notFound.IsNotFoundError()
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "404 not found")
}

// IsGraphQLError checks if the error came from a GraphQL errors array.
func (i *ReviewAPIInspector) IsGraphQLError(err error) bool {
	if err == nil {
		return false
	}
	var gqlErr *GraphQLError
	if errors.As(err, &gqlErr) {
		return true
	}
	return strings.HasPrefix(strings.ToLower(err.Error()), "graphql:")
}

// IsNetworkError checks if the error is a network connectivity error.
func (i *ReviewAPIInspector) IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "dial tcp") ||
		strings.Contains(errStr, "tls handshake") ||
		strings.Contains(errStr, "network is unreachable")
}

// Classify wraps err with the sentinel that matches it. Errors that already
// carry a sentinel and context cancellation pass through unchanged; anything
// unrecognized is treated as an upstream request failure.
func Classify(inspector Inspector, err error, action string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, relayerrors.ErrMalformedResponse),
		errors.Is(err, relayerrors.ErrUpstreamRequest),
		errors.Is(err, relayerrors.ErrNetworkFailure):
		return err
	case inspector.IsNetworkError(err):
		return fmt.Errorf("%s: check your internet connection (%v): %w", action, err, relayerrors.ErrNetworkFailure)
	case inspector.IsBlockedError(err):
		return fmt.Errorf("%s: request refused by the review site, wait before running again (%v): %w",
			action, err, relayerrors.ErrUpstreamRequest)
	case inspector.IsNotFoundError(err):
		return fmt.Errorf("%s: title not found (%v): %w", action, err, relayerrors.ErrUpstreamRequest)
	case inspector.IsGraphQLError(err):
		return fmt.Errorf("%s: %v: %w", action, err, relayerrors.ErrUpstreamRequest)
	}
	return fmt.Errorf("%s: %v: %w", action, err, relayerrors.ErrUpstreamRequest)
}
