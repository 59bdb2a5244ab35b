// Package runner sequences one spinpost invocation: ingest, aggregate, then
// build and publish content for each selected platform.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jfmyers9/spinpost/internal/apperr"
	"github.com/jfmyers9/spinpost/internal/poster"
	"github.com/jfmyers9/spinpost/internal/stats"
	"github.com/rs/zerolog"
)

// DefaultTopN is the number of tracks in a post
const DefaultTopN = 3

// ErrAllPostersFailed is returned when every selected platform failed
var ErrAllPostersFailed = errors.New("all posters failed")

// Ingester writes fresh listening history to storage
type Ingester interface {
	IngestRecentlyPlayed(ctx context.Context) (int, error)
	CachePlaylists(ctx context.Context) (int, error)
}

// Summarizer computes the weekly summary
type Summarizer interface {
	Summary(ctx context.Context, n int) (stats.Summary, error)
}

// Options control a single run
type Options struct {
	IngestOnly bool
	Platforms  []string // empty means every configured platform
	DryRun     bool     // render content but do not publish
	TopN       int
}

// Outcome is the result of one poster
type Outcome struct {
	Poster string
	Result poster.Result
	Err    error
}

// Report summarizes a run
type Report struct {
	Inserted  int
	IngestErr error
	Outcomes  []Outcome
}

// Failed counts posters that returned an error
func (r Report) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// Runner wires the components of a run together
type Runner struct {
	ingester Ingester
	stats    Summarizer
	posters  []poster.Poster
	out      io.Writer
	logger   zerolog.Logger
}

// New creates a Runner. Dry-run content is written to out.
func New(ing Ingester, s Summarizer, posters []poster.Poster, out io.Writer, logger zerolog.Logger) *Runner {
	if out == nil {
		out = io.Discard
	}
	return &Runner{
		ingester: ing,
		stats:    s,
		posters:  posters,
		out:      out,
		logger:   logger.With().Str("component", "runner").Logger(),
	}
}

// Run executes one invocation. The returned error is non-nil when the run
// should exit with a failure status: an auth failure during ingestion, any
// ingestion failure in ingest-only mode, a poster selection error, or every
// selected poster failing. The report is populated either way.
func (r *Runner) Run(ctx context.Context, opts Options) (Report, error) {
	var report Report

	inserted, err := r.ingest(ctx)
	report.Inserted = inserted
	report.IngestErr = err
	if err != nil {
		if apperr.IsAuth(err) || opts.IngestOnly {
			return report, fmt.Errorf("ingestion failed: %w", err)
		}
		r.logger.Warn().Err(err).Msg("Ingestion failed, posting from stored history")
	}

	if opts.IngestOnly {
		r.logger.Info().Int("inserted", inserted).Msg("Ingest-only run complete")
		return report, nil
	}

	selected, err := poster.Select(r.posters, opts.Platforms)
	if err != nil {
		return report, err
	}

	n := opts.TopN
	if n <= 0 {
		n = DefaultTopN
	}

	summary, err := r.stats.Summary(ctx, n)
	if err != nil {
		return report, fmt.Errorf("failed to compute summary: %w", err)
	}

	for _, p := range selected {
		report.Outcomes = append(report.Outcomes, r.publish(ctx, p, summary, opts.DryRun))
	}

	if failed := report.Failed(); failed > 0 && failed == len(report.Outcomes) {
		return report, ErrAllPostersFailed
	}
	return report, nil
}

func (r *Runner) ingest(ctx context.Context) (int, error) {
	inserted, err := r.ingester.IngestRecentlyPlayed(ctx)
	if err != nil {
		return inserted, err
	}
	r.logger.Info().Int("inserted", inserted).Msg("Ingested recently played tracks")

	// Playlist names are only needed for display; a failure here is not fatal
	if cached, err := r.ingester.CachePlaylists(ctx); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to refresh playlist cache")
	} else {
		r.logger.Debug().Int("playlists", cached).Msg("Refreshed playlist cache")
	}

	return inserted, nil
}

func (r *Runner) publish(ctx context.Context, p poster.Poster, s stats.Summary, dryRun bool) Outcome {
	log := r.logger.With().Str("poster", p.Name()).Logger()
	post := p.BuildContent(s)

	if dryRun {
		_, _ = fmt.Fprintf(r.out, "--- %s (%d chars) ---\n%s\n\n", p.Name(), post.Length(), post.Text)
		log.Info().Msg("Dry run, not posting")
		return Outcome{Poster: p.Name()}
	}

	res, err := p.Post(ctx, post)
	if err != nil {
		log.Error().Err(err).Msg("Failed to post")
		return Outcome{Poster: p.Name(), Err: err}
	}

	log.Info().Str("url", res.URL).Msg("Posted summary")
	return Outcome{Poster: p.Name(), Result: res}
}
