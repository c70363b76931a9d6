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

// Package fetch drives the paginated download of a title's reviews.
//
// A Driver walks the cursor API one page at a time: fetch, archive the raw
// body, extract each node, filter it through the dedup ledger and hand the
// surviving rows to the sink. The loop is strictly sequential and stops on
// the first failed page; there is no retry.
//
// Identifiers emitted during a run are staged in memory and only added to
// the shared ledger once the sink has been flushed, so an aborted run never
// marks reviews as seen that were not written.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sirseerhq/review-relay/internal/apierror"
	relayerrors "github.com/sirseerhq/review-relay/internal/errors"
	"github.com/sirseerhq/review-relay/internal/imdb"
	"github.com/sirseerhq/review-relay/internal/ledger"
	"github.com/sirseerhq/review-relay/internal/metadata"
	"github.com/sirseerhq/review-relay/internal/metrics"
	"github.com/sirseerhq/review-relay/internal/output"
	"github.com/sirseerhq/review-relay/internal/review"
)

// DefaultDelay is the pause between two page requests.
const DefaultDelay = 800 * time.Millisecond

// Sink receives emitted rows. *output.Accumulator implements it.
type Sink interface {
	Add(row output.Row) error
	Flush() error
}

// Archiver stores raw page bodies. *archive.Dir implements it.
type Archiver interface {
	SavePage(page int, raw []byte, cursor string) (string, error)
}

// Exporter mirrors emitted records to a secondary store.
// *export.Postgres implements it.
type Exporter interface {
	Add(ctx context.Context, titleID string, rec review.Record) error
	Flush(ctx context.Context) error
}

// Options configures one run.
type Options struct {
	TitleID  string
	PageSize int
	Sort     imdb.Sort
	Locale   string

	// Delay is the pause between pages. Zero disables it.
	Delay time.Duration

	// Prime requests the title page before the first API call.
	Prime bool

	// SeedIDs are review IDs from earlier runs. They are loaded into the
	// ledger before the first page is fetched.
	SeedIDs []string
}

// Summary reports what a run did.
type Summary struct {
	Pages      int
	Fetched    int
	Emitted    int
	Duplicates int
	Seeded     int
}

// Driver owns the pagination loop and its collaborators. Client and Sink are
// required; a nil Ledger disables deduplication and the remaining fields are
// optional.
type Driver struct {
	Client   imdb.Client
	Ledger   ledger.Ledger
	Sink     Sink
	Archive  Archiver
	Export   Exporter
	Metrics  *metrics.Metrics
	Tracker  *metadata.Tracker
	Log      zerolog.Logger
	Sleep    func(ctx context.Context, d time.Duration) error
	Progress func(page int, s Summary)
}

// Run downloads every page of reviews for opts.TitleID. The sink is flushed
// only when the traversal completes.
func (d *Driver) Run(ctx context.Context, opts Options) (*Summary, error) {
	if d.Client == nil || d.Sink == nil {
		return nil, errors.New("fetch driver requires a client and a sink")
	}
	if opts.TitleID == "" {
		return nil, fmt.Errorf("empty title: %w", relayerrors.ErrInvalidInput)
	}
	wait := d.Sleep
	if wait == nil {
		wait = sleep
	}

	log := d.Log.With().Str("title", opts.TitleID).Logger()
	summary := &Summary{}

	var staged *ledger.Memory
	if d.Ledger != nil {
		staged = ledger.NewMemory()
	}

	if opts.Prime {
		if err := d.prime(ctx, opts.TitleID, log); err != nil {
			return summary, err
		}
	}

	if err := d.seed(ctx, opts.SeedIDs, summary); err != nil {
		return summary, err
	}
	if d.Ledger != nil {
		log.Debug().Int("seeded", summary.Seeded).Msg("dedup ledger ready")
	}

	fetchOpts := imdb.FetchOptions{
		PageSize: opts.PageSize,
		Sort:     opts.Sort,
		Locale:   opts.Locale,
	}

	for pageNum := 1; ; pageNum++ {
		if d.Tracker != nil {
			d.Tracker.IncrementRequest()
		}
		page, err := d.Client.FetchReviews(ctx, opts.TitleID, fetchOpts)
		if err != nil {
			return summary, fmt.Errorf("page %d: %w", pageNum, err)
		}

		if d.Archive != nil {
			if _, err := d.Archive.SavePage(pageNum, page.Raw, fetchOpts.After); err != nil {
				return summary, fmt.Errorf("page %d: failed to archive: %w", pageNum, err)
			}
		}

		summary.Pages++
		summary.Fetched += len(page.Nodes)
		if d.Metrics != nil {
			d.Metrics.ObservePage()
		}
		if d.Tracker != nil {
			d.Tracker.RecordPage(len(page.Nodes))
		}

		emitted, dupes, err := d.consume(ctx, opts.TitleID, page.Nodes, staged)
		summary.Emitted += emitted
		summary.Duplicates += dupes
		if err != nil {
			return summary, fmt.Errorf("page %d: %w", pageNum, err)
		}

		log.Info().
			Int("page", pageNum).
			Int("reviews", len(page.Nodes)).
			Int("new", emitted).
			Int("duplicates", dupes).
			Msg("page fetched")
		if d.Progress != nil {
			d.Progress(pageNum, *summary)
		}

		if !page.HasNextPage {
			break
		}
		if page.EndCursor == "" {
			return summary, fmt.Errorf("page %d: more pages reported without a cursor: %w",
				pageNum, relayerrors.ErrMalformedResponse)
		}
		fetchOpts.After = page.EndCursor

		if opts.Delay > 0 {
			if err := wait(ctx, opts.Delay); err != nil {
				return summary, err
			}
		}
	}

	if err := d.Sink.Flush(); err != nil {
		return summary, fmt.Errorf("failed to write output: %w", err)
	}
	if err := d.commit(ctx, staged); err != nil {
		return summary, err
	}
	if d.Export != nil {
		if err := d.Export.Flush(ctx); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

// prime warms the session. A refusal is logged and the run continues; a
// transport failure is fatal since the API call would fail the same way.
func (d *Driver) prime(ctx context.Context, titleID string, log zerolog.Logger) error {
	err := d.Client.Prime(ctx, titleID)
	if err == nil {
		return nil
	}
	var statusErr *apierror.StatusError
	if errors.As(err, &statusErr) {
		log.Warn().Int("status", statusErr.StatusCode).Msg("session priming refused, continuing without cookies")
		return nil
	}
	return err
}

func (d *Driver) seed(ctx context.Context, ids []string, summary *Summary) error {
	if d.Ledger == nil {
		return nil
	}
	if err := d.Ledger.Seed(ctx, ids); err != nil {
		return err
	}
	n, err := d.Ledger.Len(ctx)
	if err != nil {
		return err
	}
	summary.Seeded = n
	if d.Metrics != nil {
		d.Metrics.SetSeeded(n)
	}
	if d.Tracker != nil {
		d.Tracker.RecordSeed(n)
	}
	return nil
}

// commit adds the identifiers emitted by this run to the shared ledger.
func (d *Driver) commit(ctx context.Context, staged *ledger.Memory) error {
	if d.Ledger == nil || staged == nil {
		return nil
	}
	if err := d.Ledger.Seed(ctx, staged.IDs()); err != nil {
		return fmt.Errorf("failed to record emitted reviews: %w", err)
	}
	return nil
}

// consume extracts nodes in page order and forwards the new ones. Emitted
// identifiers go to staged; the shared ledger is only read.
func (d *Driver) consume(ctx context.Context, titleID string, nodes []any, staged *ledger.Memory) (emitted, dupes int, err error) {
	for _, node := range nodes {
		rec := review.Extract(node)
		id := rec.ReviewID.Or("")

		if id != "" && d.Ledger != nil {
			isNew, err := d.Ledger.IsNew(ctx, id)
			if err != nil {
				return emitted, dupes, fmt.Errorf("dedup lookup %s: %w", id, err)
			}
			if isNew {
				isNew, _ = staged.IsNew(ctx, id)
			}
			if !isNew {
				dupes++
				d.observe(id, rec, false)
				continue
			}
			if err := staged.MarkSeen(ctx, id); err != nil {
				return emitted, dupes, fmt.Errorf("dedup mark %s: %w", id, err)
			}
		}

		if err := d.Sink.Add(rec.Row()); err != nil {
			return emitted, dupes, err
		}
		if d.Export != nil {
			if err := d.Export.Add(ctx, titleID, rec); err != nil {
				return emitted, dupes, err
			}
		}
		emitted++
		d.observe(id, rec, true)
	}
	return emitted, dupes, nil
}

func (d *Driver) observe(id string, rec review.Record, emitted bool) {
	if d.Metrics != nil {
		outcome := metrics.OutcomeEmitted
		if !emitted {
			outcome = metrics.OutcomeDuplicate
		}
		d.Metrics.ObserveReview(outcome)
	}
	if d.Tracker != nil {
		d.Tracker.RecordReview(id, rec.Date.Or(""), emitted)
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
