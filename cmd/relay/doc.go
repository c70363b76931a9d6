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

// Package main implements the review-relay command-line interface.
// This tool downloads every user review of an IMDb title through the
// site's cursor-paginated GraphQL API and writes them to a delimited file.
//
// The CLI supports:
//   - A reviews URL or bare title ID as argument, or an interactive prompt
//   - CSV, TSV and NDJSON output with a fixed or dynamic column set
//   - Skipping reviews saved by earlier runs (--dedup), in memory or Redis
//   - Archiving every raw API page for audit and replay (--archive)
//   - A JSON metadata record per run, Prometheus metrics and an optional
//     Postgres mirror of the emitted reviews
//
// Usage:
//
//	review-relay fetch [reviews-url | title-id] [flags]
//
// Example:
//
//	review-relay fetch https://www.imdb.com/title/tt0111161/reviews/ --dedup --archive
//
// Exit codes:
//   - 0: Success
//   - 1: Configuration or general error
//   - 3: Upstream request or network failure
//   - 4: No title identifier in the input
//   - 5: Malformed upstream response
//   - 130: Interrupted
package main
