/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jfmyers9/spinpost/internal/config"
	"github.com/jfmyers9/spinpost/internal/stats"
	"github.com/jfmyers9/spinpost/internal/store"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

// topCmd represents the top command
var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Show what the weekly summary is built from",
	Long: `List the top tracks and albums of the last 7 days and the most recent
plays stored in the database, without contacting Spotify or posting anything.

Useful to check that ingestion is picking up plays and album data.`,
	RunE: runTop,
}

func init() {
	rootCmd.AddCommand(topCmd)

	topCmd.Flags().IntP("limit", "n", 10, "Number of top tracks and albums to show")
	topCmd.Flags().Int("recent", 20, "Number of recent plays to show")
	topCmd.Flags().IntP("width", "w", 40, "Column width for names")
}

func runTop(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if dbPath != "" {
		cfg.SQLitePath = dbPath
	}

	st, err := store.Open(cfg.SQLitePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = st.Close() }()

	limit, _ := cmd.Flags().GetInt("limit")
	recent, _ := cmd.Flags().GetInt("recent")
	width, _ := cmd.Flags().GetInt("width")

	plays, err := st.PlaysSince(ctx, time.Now().Add(-stats.Window))
	if err != nil {
		return err
	}
	latest, err := st.RecentPlays(ctx, recent)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printTopTracks(out, stats.RankTracks(plays, limit), width)
	printTopAlbums(out, stats.RankAlbums(plays, limit), width)
	printRecent(out, latest, width)
	return nil
}

func printTopTracks(w io.Writer, tracks []stats.TopTrack, width int) {
	_, _ = fmt.Fprintf(w, "=== Top Tracks (Last 7 Days) ===\n\n")
	if len(tracks) == 0 {
		_, _ = fmt.Fprintln(w, "  (none)")
	}
	for i, t := range tracks {
		_, _ = fmt.Fprintf(w, "%2d. %s %3dx  %s\n", i+1, padToWidth(t.Label(), width), t.Plays, t.URL)
	}
	_, _ = fmt.Fprintln(w)
}

func printTopAlbums(w io.Writer, albums []stats.TopAlbum, width int) {
	_, _ = fmt.Fprintf(w, "=== Top Albums (Last 7 Days) ===\n\n")
	if len(albums) == 0 {
		_, _ = fmt.Fprintln(w, "  (none)")
	}
	for i, a := range albums {
		_, _ = fmt.Fprintf(w, "%2d. %s %3dx  %s\n", i+1, padToWidth(a.Label(), width), a.Plays, a.URL)
	}
	_, _ = fmt.Fprintln(w)
}

func printRecent(w io.Writer, plays []store.PlayEvent, width int) {
	_, _ = fmt.Fprintf(w, "=== Recent Plays ===\n\n")
	if len(plays) == 0 {
		_, _ = fmt.Fprintln(w, "  (none)")
	}
	for _, p := range plays {
		album := p.AlbumName
		if album == "" {
			album = "-"
		}
		_, _ = fmt.Fprintf(w, "%s  %s  %s\n",
			p.PlayedAt.Local().Format("2006-01-02 15:04"),
			padToWidth(p.TrackName+" - "+p.ArtistName, width),
			padToWidth(album, width/2))
	}
}

// padToWidth pads or truncates text to a fixed display width.
// Width is measured in display columns, accounting for Unicode characters.
// If width <= 0, returns text unchanged.
// If text is longer than width, truncates with "..." suffix.
// If text is shorter than width, pads with spaces.
func padToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}

	currentWidth := runewidth.StringWidth(text)

	if currentWidth > width {
		ellipsis := "..."
		ellipsisWidth := runewidth.StringWidth(ellipsis)

		if width <= ellipsisWidth {
			return runewidth.Truncate(ellipsis, width, "")
		}

		truncated := runewidth.Truncate(text, width-ellipsisWidth, "")
		result := truncated + ellipsis

		// Wide runes can leave the result a column short
		if resultWidth := runewidth.StringWidth(result); resultWidth < width {
			return result + strings.Repeat(" ", width-resultWidth)
		}
		return result
	} else if currentWidth < width {
		return text + strings.Repeat(" ", width-currentWidth)
	}

	return text
}
