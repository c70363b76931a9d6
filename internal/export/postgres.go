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

// Package export copies emitted review records into a Postgres table.
//
// Rows are upserted on (title_id, review_id) so repeated runs refresh vote
// counts instead of duplicating reviews. Records without a review ID have no
// key and are skipped.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sirseerhq/review-relay/internal/review"
)

// DefaultTable is used when no table name is configured.
const DefaultTable = "imdb_reviews"

// DefaultBatchSize is the number of upserts sent per round trip.
const DefaultBatchSize = 200

// DB is the subset of *pgxpool.Pool used by Postgres.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Config configures the Postgres exporter.
type Config struct {
	URL       string
	Table     string
	BatchSize int
	MaxConns  int32
}

// Postgres queues records and upserts them in batches.
type Postgres struct {
	db        DB
	table     string
	batchSize int
	runID     string
	now       func() time.Time

	pending  []pending
	upserted int
	skipped  int
}

type pending struct {
	titleID string
	rec     review.Record
}

// Open connects a pool and returns an exporter over it. The caller closes
// the returned pool.
func Open(ctx context.Context, cfg Config, runID string) (*Postgres, *pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid postgres url: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return New(pool, cfg.Table, cfg.BatchSize, runID), pool, nil
}

// New creates an exporter over db.
func New(db DB, table string, batchSize int, runID string) *Postgres {
	if table == "" {
		table = DefaultTable
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Postgres{
		db:        db,
		table:     pgx.Identifier(strings.Split(table, ".")).Sanitize(),
		batchSize: batchSize,
		runID:     runID,
		now:       time.Now,
	}
}

// EnsureTable creates the target table when it does not exist.
func (p *Postgres) EnsureTable(ctx context.Context) error {
	_, err := p.db.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+p.table+` (
		title_id          TEXT NOT NULL,
		review_id         TEXT NOT NULL,
		author            TEXT,
		rating            NUMERIC,
		title             TEXT,
		text              TEXT,
		helpful_upvotes   NUMERIC,
		helpful_downvotes NUMERIC,
		review_date       TEXT,
		run_id            TEXT NOT NULL,
		exported_at       TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (title_id, review_id)
	)`)
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", p.table, err)
	}
	return nil
}

// Add queues rec and sends a batch once enough records are pending.
func (p *Postgres) Add(ctx context.Context, titleID string, rec review.Record) error {
	if !rec.ReviewID.Valid || rec.ReviewID.Value == "" {
		p.skipped++
		return nil
	}
	p.pending = append(p.pending, pending{titleID: titleID, rec: rec})
	if len(p.pending) >= p.batchSize {
		return p.Flush(ctx)
	}
	return nil
}

// Flush sends every pending record.
func (p *Postgres) Flush(ctx context.Context) error {
	if len(p.pending) == 0 {
		return nil
	}

	sql := `INSERT INTO ` + p.table + `
		(title_id, review_id, author, rating, title, text,
		 helpful_upvotes, helpful_downvotes, review_date, run_id, exported_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (title_id, review_id) DO UPDATE SET
		 author = EXCLUDED.author,
		 rating = EXCLUDED.rating,
		 title = EXCLUDED.title,
		 text = EXCLUDED.text,
		 helpful_upvotes = EXCLUDED.helpful_upvotes,
		 helpful_downvotes = EXCLUDED.helpful_downvotes,
		 review_date = EXCLUDED.review_date,
		 run_id = EXCLUDED.run_id,
		 exported_at = EXCLUDED.exported_at`

	exportedAt := p.now().UTC()
	b := &pgx.Batch{}
	for _, item := range p.pending {
		r := item.rec
		b.Queue(sql,
			item.titleID, r.ReviewID.Value, r.Author.Any(), numeric(r.Rating), r.Title.Any(), r.Text.Any(),
			numeric(r.HelpfulUpvotes), numeric(r.HelpfulDownvotes), r.Date.Any(), p.runID, exportedAt,
		)
	}
	count := len(p.pending)
	p.pending = p.pending[:0]

	br := p.db.SendBatch(ctx, b)
	for i := 0; i < count; i++ {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return fmt.Errorf("failed to export review batch: %w", err)
		}
		p.upserted += int(tag.RowsAffected())
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to export review batch: %w", err)
	}
	return nil
}

// numeric converts a JSON number for a NUMERIC column; absent or
// unparsable values are NULL.
func numeric(n review.Optional[json.Number]) any {
	if !n.Valid {
		return nil
	}
	f, err := n.Value.Float64()
	if err != nil {
		return nil
	}
	return f
}

// Upserted returns the number of rows written so far.
func (p *Postgres) Upserted() int { return p.upserted }

// Skipped returns the number of records dropped for lacking an ID.
func (p *Postgres) Skipped() int { return p.skipped }

// Table returns the quoted table name.
func (p *Postgres) Table() string { return p.table }
