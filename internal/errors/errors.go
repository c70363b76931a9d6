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

// Package errors defines sentinel errors for consistent error handling across the application.
// These errors map to specific exit codes in the CLI for proper scripting support.
package errors

import "errors"

// Sentinel errors for consistent error handling and exit code mapping
var (
	// ErrInvalidInput indicates no title identifier could be resolved from the input.
	// Maps to exit code 4.
	ErrInvalidInput = errors.New("invalid input: no title identifier found")

	// ErrUpstreamRequest indicates the review API answered with a non-success status
	// or reported GraphQL errors.
	// Maps to exit code 3.
	ErrUpstreamRequest = errors.New("upstream request failed")

	// ErrNetworkFailure indicates a network connection problem.
	// Maps to exit code 3.
	ErrNetworkFailure = errors.New("network connection failed")

	// ErrMalformedResponse indicates the response body lacks the expected
	// data.title.reviews shape.
	// Maps to exit code 5.
	ErrMalformedResponse = errors.New("malformed upstream response")
)
