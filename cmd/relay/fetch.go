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

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sirseerhq/review-relay/internal/archive"
	"github.com/sirseerhq/review-relay/internal/config"
	relayerrors "github.com/sirseerhq/review-relay/internal/errors"
	"github.com/sirseerhq/review-relay/internal/export"
	"github.com/sirseerhq/review-relay/internal/fetch"
	"github.com/sirseerhq/review-relay/internal/imdb"
	"github.com/sirseerhq/review-relay/internal/ledger"
	"github.com/sirseerhq/review-relay/internal/logging"
	"github.com/sirseerhq/review-relay/internal/metadata"
	"github.com/sirseerhq/review-relay/internal/metrics"
	"github.com/sirseerhq/review-relay/internal/output"
	"github.com/sirseerhq/review-relay/pkg/version"
)

// Prompt is shown when no input is given on the command line.
const Prompt = "Enter IMDb reviews URL: "

// now is the clock used for timestamped output names.
var now = time.Now

// fetchFlags mirrors the config settings that can be overridden per run.
type fetchFlags struct {
	endpoint  string
	siteURL   string
	mode      string
	noPrime   bool
	pageSize  int
	sortBy    string
	sortOrder string
	locale    string
	delay     time.Duration
	rps       float64
	outputDir string
	format    string
	schema    string
	columns   []string
	timestamp bool
	dedup     bool
	backend   string
	redisAddr string
	archive   bool
	textfile  string
	listen    string
	pgURL     string
	pgTable   string
}

func newFetchCommand(g *globalOptions, stdin io.Reader) *cobra.Command {
	f := &fetchFlags{}

	cmd := &cobra.Command{
		Use:   "fetch [reviews-url | title-id]",
		Short: "Download every review of an IMDb title",
		Long: `Download every user review of an IMDb title and write them to a file.

The title is taken from the argument, which may be a reviews URL such as
https://www.imdb.com/title/tt0111161/reviews/ or a bare ID like tt0111161.
Without an argument the URL is read from standard input.

Output is written to <dir>/<id>_all_reviews.<ext>. With --dedup (or
--timestamp) the name carries the run time, and reviews already present in
earlier <id>_all_reviews* files are skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := ""
			if len(args) == 1 {
				input = args[0]
			} else {
				line, err := promptInput(stdin, cmd.OutOrStdout())
				if err != nil {
					return err
				}
				input = line
			}
			return runFetch(cmd.Context(), cmd, g, f, input)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.endpoint, "endpoint", "", "GraphQL endpoint URL")
	fl.StringVar(&f.siteURL, "site-url", "", "Site URL used for session priming and request headers")
	fl.StringVar(&f.mode, "mode", "", "Request mode: persisted (query hash) or inline (full query text)")
	fl.BoolVar(&f.noPrime, "no-prime", false, "Skip the session priming request")
	fl.IntVar(&f.pageSize, "page-size", 0, "Reviews per page (default 25)")
	fl.StringVar(&f.sortBy, "sort-by", "", "Sort key, e.g. HELPFULNESS_SCORE or SUBMISSION_DATE")
	fl.StringVar(&f.sortOrder, "sort-order", "", "Sort order: ASC or DESC")
	fl.StringVar(&f.locale, "locale", "", "Review locale (default en-US)")
	fl.DurationVar(&f.delay, "delay", 0, "Pause between pages (default 800ms)")
	fl.Float64Var(&f.rps, "rps", 0, "Cap on requests per second, 0 for none")
	fl.StringVarP(&f.outputDir, "output-dir", "o", "", "Directory for output files")
	fl.StringVar(&f.format, "format", "", "Output format: csv, tsv or ndjson")
	fl.StringVar(&f.schema, "schema", "", "Column set: fixed or dynamic")
	fl.StringSliceVar(&f.columns, "columns", nil, "Columns of the fixed schema, comma separated")
	fl.BoolVar(&f.timestamp, "timestamp", false, "Append the run time to the output file name")
	fl.BoolVar(&f.dedup, "dedup", false, "Skip reviews saved by earlier runs")
	fl.StringVar(&f.backend, "dedup-backend", "", "Dedup ledger: memory or redis")
	fl.StringVar(&f.redisAddr, "redis-addr", "", "Redis address for the redis dedup backend")
	fl.BoolVar(&f.archive, "archive", false, "Save every raw API page to <id>_raw_pages/")
	fl.StringVar(&f.textfile, "metrics-textfile", "", "Write run metrics to this node_exporter textfile")
	fl.StringVar(&f.listen, "metrics-listen", "", "Serve /metrics on this address during the run")
	fl.StringVar(&f.pgURL, "postgres-url", "", "Also upsert emitted reviews into Postgres")
	fl.StringVar(&f.pgTable, "postgres-table", "", "Postgres table for exported reviews")

	return cmd
}

// promptInput asks for the reviews URL and reads one line.
func promptInput(stdin io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, Prompt)
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(cmd *cobra.Command, g *globalOptions, f *fetchFlags, cfg *config.Config) {
	set := cmd.Flags().Changed

	if set("log-level") {
		cfg.Log.Level = g.logLevel
	}
	if set("log-format") {
		cfg.Log.Format = g.logFormat
	}
	if set("endpoint") {
		cfg.IMDb.Endpoint = f.endpoint
	}
	if set("site-url") {
		cfg.IMDb.SiteURL = f.siteURL
	}
	if set("mode") {
		cfg.IMDb.Mode = f.mode
	}
	if set("no-prime") {
		cfg.IMDb.Prime = !f.noPrime
	}
	if set("page-size") {
		cfg.Fetch.PageSize = f.pageSize
	}
	if set("sort-by") {
		cfg.Fetch.SortBy = f.sortBy
	}
	if set("sort-order") {
		cfg.Fetch.SortOrder = f.sortOrder
	}
	if set("locale") {
		cfg.Fetch.Locale = f.locale
	}
	if set("delay") {
		cfg.Fetch.Delay = f.delay
	}
	if set("rps") {
		cfg.Fetch.RequestsPerSecond = f.rps
	}
	if set("output-dir") {
		cfg.Output.Dir = f.outputDir
	}
	if set("format") {
		cfg.Output.Format = f.format
	}
	if set("schema") {
		cfg.Output.Schema = f.schema
	}
	if set("columns") {
		cfg.Output.Columns = f.columns
	}
	if set("timestamp") {
		cfg.Output.Timestamp = f.timestamp
	}
	if set("dedup") {
		cfg.Dedup.Enabled = f.dedup
	}
	if set("dedup-backend") {
		cfg.Dedup.Backend = f.backend
	}
	if set("redis-addr") {
		cfg.Dedup.RedisAddr = f.redisAddr
	}
	if set("archive") {
		cfg.Archive.Enabled = f.archive
	}
	if set("metrics-textfile") {
		cfg.Metrics.Textfile = f.textfile
	}
	if set("metrics-listen") {
		cfg.Metrics.Listen = f.listen
	}
	if set("postgres-url") {
		cfg.Export.PostgresURL = f.pgURL
	}
	if set("postgres-table") {
		cfg.Export.Table = f.pgTable
	}
}

// baseName is the shared prefix of every output artifact of a title.
func baseName(titleID string) string {
	return titleID + "_all_reviews"
}

// outputPath returns <dir>/<id>_all_reviews[_YYYYmmdd_HHMMSS].<ext>.
func outputPath(dir, titleID string, format output.Format, stamp time.Time, timestamped bool) string {
	name := baseName(titleID)
	if timestamped {
		name += "_" + stamp.Format("20060102_150405")
	}
	return filepath.Join(dir, name+"."+format.Extension())
}

// availablePath returns path, or path with a _2, _3, ... suffix before the
// extension when a file of that name already exists. Timestamped names only
// have one-second resolution.
func availablePath(path string) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	candidate := path
	for n := 2; ; n++ {
		if _, err := os.Lstat(candidate); err != nil {
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d%s", stem, n, ext)
	}
}

// runFetch executes the fetch command
func runFetch(ctx context.Context, cmd *cobra.Command, g *globalOptions, f *fetchFlags, input string) error {
	titleID, err := imdb.ResolveTitleID(input)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfigForTitle(g.configPath, titleID)
	if err != nil {
		return err
	}
	applyFlags(cmd, g, f, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}
	dir := cfg.Output.Dir
	timestamped := cfg.Output.Timestamp || cfg.Dedup.Enabled
	outPath := outputPath(dir, titleID, format, now(), timestamped)
	if timestamped {
		outPath = availablePath(outPath)
	}
	log.Info().Str("title", titleID).Str("output", outPath).Msg("starting review download")

	m := metrics.New()
	if cfg.Metrics.Textfile != "" {
		defer func() {
			if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
				log.Warn().Err(err).Msg("failed to write metrics textfile")
			}
		}()
	}
	if cfg.Metrics.Listen != "" {
		stopMetrics, err := serveMetrics(ctx, m, cfg.Metrics.Listen, log)
		if err != nil {
			return err
		}
		defer stopMetrics()
	}

	client, err := newClient(cfg, m)
	if err != nil {
		return err
	}

	tracker := metadata.New(titleID)
	previous, err := metadata.LoadLatestMetadata(dir, titleID)
	if err != nil {
		log.Warn().Err(err).Msg("ignoring unreadable metadata of earlier runs")
		previous = nil
	}

	var (
		seen    ledger.Ledger
		seedIDs []string
	)
	if cfg.Dedup.Enabled {
		var closeLedger func() error
		seen, closeLedger, err = newLedger(ctx, cfg, titleID)
		if err != nil {
			return err
		}
		defer func() {
			if err := closeLedger(); err != nil {
				log.Warn().Err(err).Msg("failed to close dedup ledger")
			}
		}()
		seedIDs, err = ledger.ScanOutputs(ctx, dir, baseName(titleID))
		if err != nil {
			return err
		}
		log.Info().Int("ids", len(seedIDs)).Msg("loaded review ids of earlier runs")
	}

	schema := output.Schema{Mode: output.Mode(cfg.Output.Schema), Columns: cfg.Columns()}
	acc := output.NewAccumulator(schema, func(cols []string) (output.OutputWriter, error) {
		return output.Open(outPath, format, cols)
	})
	defer acc.Close()

	driver := &fetch.Driver{
		Client:  client,
		Ledger:  seen,
		Sink:    acc,
		Metrics: m,
		Tracker: tracker,
		Log:     log,
	}

	archiveDir := ""
	if cfg.Archive.Enabled {
		archiveDir = filepath.Join(dir, titleID+"_raw_pages")
		driver.Archive = archive.New(archiveDir)
	}

	if cfg.Export.PostgresURL != "" {
		exp, pool, err := export.Open(ctx, export.Config{
			URL:       cfg.Export.PostgresURL,
			Table:     cfg.Export.Table,
			BatchSize: cfg.Export.BatchSize,
		}, tracker.RunID())
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := exp.EnsureTable(ctx); err != nil {
			return err
		}
		driver.Export = exp
	}

	summary, err := driver.Run(ctx, fetch.Options{
		TitleID:  titleID,
		PageSize: cfg.Fetch.PageSize,
		Sort:     imdb.Sort{By: cfg.Fetch.SortBy, Order: cfg.Fetch.SortOrder},
		Locale:   cfg.Fetch.Locale,
		Delay:    cfg.Fetch.Delay,
		Prime:    cfg.IMDb.Prime,
		SeedIDs:  seedIDs,
	})
	if err != nil {
		if summary != nil && summary.Pages > 0 {
			log.Error().Int("pages", summary.Pages).Msg("run aborted, no output written")
		}
		return err
	}

	var prevRef *metadata.RunRef
	if previous != nil {
		prevRef = previous.Ref()
	}
	meta := tracker.GenerateMetadata(version.Version, metadata.FetchParams{
		Mode:      cfg.IMDb.Mode,
		PageSize:  cfg.Fetch.PageSize,
		SortBy:    cfg.Fetch.SortBy,
		SortOrder: cfg.Fetch.SortOrder,
		Locale:    cfg.Fetch.Locale,
		Delay:     cfg.Fetch.Delay.String(),
		Dedup:     cfg.Dedup.Enabled,
		Archive:   cfg.Archive.Enabled,
		Schema:    cfg.Output.Schema,
	}, metadata.OutputRef{
		Path:       outPath,
		Format:     string(format),
		Columns:    acc.Columns(),
		ArchiveDir: archiveDir,
	}, prevRef)
	metaPath, err := metadata.SaveMetadata(meta, dir)
	if err != nil {
		log.Warn().Err(err).Msg("failed to save run metadata")
	}

	report(cmd.ErrOrStderr(), summary, outPath, archiveDir, metaPath, schema, acc.Columns())
	return nil
}

// report prints the end-of-run summary.
func report(w io.Writer, s *fetch.Summary, outPath, archiveDir, metaPath string, schema output.Schema, columns []string) {
	if s.Seeded > 0 || s.Duplicates > 0 {
		fmt.Fprintf(w, "Saved %d new reviews to %s (%d duplicates skipped)\n", s.Emitted, outPath, s.Duplicates)
	} else {
		fmt.Fprintf(w, "Saved %d reviews to %s\n", s.Emitted, outPath)
	}
	if schema.Mode == output.ModeDynamic {
		fmt.Fprintf(w, "Detected columns: %s\n", strings.Join(columns, ", "))
	}
	if archiveDir != "" {
		fmt.Fprintf(w, "Raw pages archived in %s\n", archiveDir)
	}
	if metaPath != "" {
		fmt.Fprintf(w, "Run metadata written to %s\n", metaPath)
	}
}

// newClient builds the API client for the configured request mode.
func newClient(cfg *config.Config, observer imdb.Observer) (imdb.Client, error) {
	opts := imdb.Options{
		Endpoint:          cfg.IMDb.Endpoint,
		SiteURL:           cfg.IMDb.SiteURL,
		UserAgent:         cfg.IMDb.UserAgent,
		AcceptLanguage:    cfg.IMDb.AcceptLanguage,
		OperationName:     cfg.IMDb.OperationName,
		QueryHash:         cfg.IMDb.QueryHash,
		Timeout:           cfg.IMDb.Timeout,
		RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
		MaxResponseBytes:  cfg.IMDb.MaxResponseBytes,
		Observer:          observer,
	}
	if cfg.IMDb.Mode == config.ModeInline {
		c, err := imdb.NewInlineClient(opts, nil)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	c, err := imdb.NewPersistedClient(opts, nil)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// newLedger returns the dedup ledger of the configured backend.
// newLedger returns the dedup ledger of the configured backend and a
// function releasing its connection.
func newLedger(ctx context.Context, cfg *config.Config, titleID string) (ledger.Ledger, func() error, error) {
	if cfg.Dedup.Backend != "redis" {
		return ledger.NewMemory(), func() error { return nil }, nil
	}
	rc := ledger.NewRedisClient(cfg.Dedup.RedisAddr, cfg.Dedup.RedisPassword, cfg.Dedup.RedisDB)
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, nil, fmt.Errorf("dedup ledger at %s unavailable: %v: %w", cfg.Dedup.RedisAddr, err, relayerrors.ErrNetworkFailure)
	}
	return ledger.NewRedis(rc, cfg.Dedup.RedisPrefix, titleID), rc.Close, nil
}

// serveMetrics starts the metrics server and returns a function that stops
// it and waits for it to exit.
func serveMetrics(ctx context.Context, m *metrics.Metrics, addr string, log zerolog.Logger) (func(), error) {
	srv, err := m.Listen(addr, log)
	if err != nil {
		return nil, fmt.Errorf("failed to start metrics server: %w", err)
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ctx); err != nil {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
	return func() {
		cancel()
		<-done
	}, nil
}
