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

// Package imdb talks to the IMDb review API.
//
// It resolves title identifiers from user input and fetches one page of
// reviews at a time through the cursor-paginated GraphQL endpoint. Two
// implementations of Client exist:
//
//   - PersistedClient posts the persisted TitleReviewsRefine operation by
//     hash, the way the IMDb web frontend does.
//   - InlineClient sends the query text through shurcooL/graphql, aliasing
//     fields so that pages have the same node shape as persisted responses.
//
// Both clients share one anonymous session: a cookie jar filled by Prime,
// browser-like headers, an optional request cap and a response size limit.
// Pages are returned with their raw body so callers can archive exactly what
// was received.
package imdb
