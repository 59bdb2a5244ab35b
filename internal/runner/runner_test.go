package runner

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jfmyers9/spinpost/internal/apperr"
	"github.com/jfmyers9/spinpost/internal/content"
	"github.com/jfmyers9/spinpost/internal/poster"
	"github.com/jfmyers9/spinpost/internal/stats"
	"github.com/rs/zerolog"
)

type fakeIngester struct {
	inserted   int
	err        error
	cacheErr   error
	cacheCalls int
}

func (f *fakeIngester) IngestRecentlyPlayed(ctx context.Context) (int, error) {
	return f.inserted, f.err
}

func (f *fakeIngester) CachePlaylists(ctx context.Context) (int, error) {
	f.cacheCalls++
	return 0, f.cacheErr
}

type fakeStats struct {
	summary stats.Summary
	gotN    int
	calls   int
}

func (f *fakeStats) Summary(ctx context.Context, n int) (stats.Summary, error) {
	f.calls++
	f.gotN = n
	return f.summary, nil
}

type fakePoster struct {
	name       string
	configured bool
	err        error
	posted     []content.Post
}

func (f *fakePoster) Name() string       { return f.name }
func (f *fakePoster) IsConfigured() bool { return f.configured }

func (f *fakePoster) BuildContent(s stats.Summary) content.Post {
	return content.PlainText(s)
}

func (f *fakePoster) Post(ctx context.Context, p content.Post) (poster.Result, error) {
	if f.err != nil {
		return poster.Result{}, f.err
	}
	f.posted = append(f.posted, p)
	return poster.Result{ID: f.name + "-1"}, nil
}

func summary() stats.Summary {
	return stats.Summary{Tracks: []stats.TopTrack{{ID: "t", Name: "Song", Artist: "Band", Plays: 3}}}
}

func TestRun(t *testing.T) {
	authErr := &apperr.AuthError{Service: "spotify", Err: errors.New("invalid_grant")}
	netErr := &apperr.TransportError{Service: "spotify", Err: errors.New("timeout")}
	postErr := &apperr.TransportError{Service: "mastodon", Err: errors.New("HTTP 500")}

	tests := []struct {
		name        string
		ingestErr   error
		opts        Options
		posters     []*fakePoster
		wantErr     bool
		wantPosted  []int // posts per poster
		wantSummary bool
	}{
		{
			name:        "posts to all configured",
			posters:     []*fakePoster{{name: "bluesky", configured: true}, {name: "mastodon", configured: true}},
			wantPosted:  []int{1, 1},
			wantSummary: true,
		},
		{
			name:       "ingest only",
			opts:       Options{IngestOnly: true},
			posters:    []*fakePoster{{name: "bluesky", configured: true}},
			wantPosted: []int{0},
		},
		{
			name:       "ingest auth failure aborts",
			ingestErr:  authErr,
			posters:    []*fakePoster{{name: "bluesky", configured: true}},
			wantErr:    true,
			wantPosted: []int{0},
		},
		{
			name:        "ingest transport failure still posts",
			ingestErr:   netErr,
			posters:     []*fakePoster{{name: "bluesky", configured: true}},
			wantPosted:  []int{1},
			wantSummary: true,
		},
		{
			name:       "ingest transport failure in ingest-only mode",
			ingestErr:  netErr,
			opts:       Options{IngestOnly: true},
			posters:    []*fakePoster{{name: "bluesky", configured: true}},
			wantErr:    true,
			wantPosted: []int{0},
		},
		{
			name:        "one poster failing does not stop the other",
			posters:     []*fakePoster{{name: "mastodon", configured: true, err: postErr}, {name: "bluesky", configured: true}},
			wantPosted:  []int{0, 1},
			wantSummary: true,
		},
		{
			name:        "all posters failing",
			posters:     []*fakePoster{{name: "mastodon", configured: true, err: postErr}},
			wantErr:     true,
			wantPosted:  []int{0},
			wantSummary: true,
		},
		{
			name:       "requested platform not configured",
			opts:       Options{Platforms: []string{"mastodon"}},
			posters:    []*fakePoster{{name: "bluesky", configured: true}, {name: "mastodon"}},
			wantErr:    true,
			wantPosted: []int{0, 0},
		},
		{
			name:       "no platforms configured",
			posters:    []*fakePoster{{name: "bluesky"}},
			wantErr:    true,
			wantPosted: []int{0},
		},
		{
			name:        "requested subset",
			opts:        Options{Platforms: []string{"bluesky"}},
			posters:     []*fakePoster{{name: "bluesky", configured: true}, {name: "mastodon", configured: true}},
			wantPosted:  []int{1, 0},
			wantSummary: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ing := &fakeIngester{inserted: 4, err: tt.ingestErr}
			st := &fakeStats{summary: summary()}

			var posters []poster.Poster
			for _, p := range tt.posters {
				posters = append(posters, p)
			}

			r := New(ing, st, posters, nil, zerolog.Nop())
			_, err := r.Run(context.Background(), tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Run() error = %v, wantErr %v", err, tt.wantErr)
			}

			for i, p := range tt.posters {
				if len(p.posted) != tt.wantPosted[i] {
					t.Errorf("%s posted %d times, want %d", p.name, len(p.posted), tt.wantPosted[i])
				}
			}
			if (st.calls > 0) != tt.wantSummary {
				t.Errorf("summary computed = %v, want %v", st.calls > 0, tt.wantSummary)
			}
		})
	}
}

func TestRun_Report(t *testing.T) {
	postErr := &apperr.AuthError{Service: "mastodon", Err: errors.New("revoked")}
	ing := &fakeIngester{inserted: 7, cacheErr: errors.New("playlists unavailable")}
	st := &fakeStats{summary: summary()}
	posters := []poster.Poster{
		&fakePoster{name: "bluesky", configured: true},
		&fakePoster{name: "mastodon", configured: true, err: postErr},
	}

	report, err := New(ing, st, posters, nil, zerolog.Nop()).Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("partial success should not fail the run: %v", err)
	}
	if report.Inserted != 7 {
		t.Errorf("expected 7 inserted, got %d", report.Inserted)
	}
	if ing.cacheCalls != 1 {
		t.Errorf("expected playlist cache refresh, got %d calls", ing.cacheCalls)
	}
	if st.gotN != DefaultTopN {
		t.Errorf("expected default top %d, got %d", DefaultTopN, st.gotN)
	}
	if len(report.Outcomes) != 2 || report.Failed() != 1 {
		t.Fatalf("unexpected outcomes %+v", report.Outcomes)
	}
	if report.Outcomes[0].Result.ID != "bluesky-1" {
		t.Errorf("unexpected result %+v", report.Outcomes[0])
	}
	if !apperr.IsAuth(report.Outcomes[1].Err) {
		t.Errorf("expected auth error recorded for mastodon, got %v", report.Outcomes[1].Err)
	}
}

func TestRun_AllFailedError(t *testing.T) {
	posters := []poster.Poster{&fakePoster{name: "bluesky", configured: true, err: errors.New("boom")}}
	_, err := New(&fakeIngester{}, &fakeStats{}, posters, nil, zerolog.Nop()).Run(context.Background(), Options{})
	if !errors.Is(err, ErrAllPostersFailed) {
		t.Errorf("expected ErrAllPostersFailed, got %v", err)
	}
}

func TestRun_DryRun(t *testing.T) {
	var out bytes.Buffer
	p := &fakePoster{name: "mastodon", configured: true}
	st := &fakeStats{summary: summary()}

	report, err := New(&fakeIngester{}, st, []poster.Poster{p}, &out, zerolog.Nop()).
		Run(context.Background(), Options{DryRun: true, TopN: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.posted) != 0 {
		t.Errorf("dry run must not post")
	}
	if st.gotN != 5 {
		t.Errorf("expected top 5, got %d", st.gotN)
	}
	if report.Failed() != 0 {
		t.Errorf("dry run should record success, got %+v", report.Outcomes)
	}
	if !strings.Contains(out.String(), content.Header) || !strings.Contains(out.String(), "--- mastodon") {
		t.Errorf("expected rendered content in output, got:\n%s", out.String())
	}
}
