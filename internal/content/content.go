// Package content renders a weekly summary into post text.
//
// Two renderings share one layout: RichText keeps labels clean and returns
// link and hashtag facets with UTF-8 byte offsets (for Bluesky), PlainText
// writes bare URLs after each label and relies on the platform to linkify
// them (for Mastodon).
//
// Layout, in order:
//
//	Top 🎵 This week:
//
//	1. Track — Artist (x3)
//	2. Track — Artist
//
//	📀 Album — Artist
//	📂 Playlist
//
//	#NowPlaying #Music
//
// Posts never exceed MaxLength characters. Long labels are truncated down to
// a readable width first, then trailing sections are dropped. Labels only go
// narrower than that when the header and top entry alone do not fit.
package content

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jfmyers9/spinpost/internal/stats"
	"github.com/mattn/go-runewidth"
)

// MaxLength is the character budget of a post
const MaxLength = 300

// Header opens every post
const Header = "Top 🎵 This week:"

const ellipsis = "…"

// labelWidths are the display widths tried, in order, when a post is too long.
// Zero means untruncated.
var labelWidths = []int{0, 48, 36, 28, 20, 14, 8}

// minLabelWidth is the narrowest width used while sections can still be dropped
const minLabelWidth = 20

// Facet annotates a byte range of the post text with a link or hashtag
type Facet struct {
	ByteStart int
	ByteEnd   int
	URI       string // set for link facets
	Tag       string // set for hashtag facets, without "#"
}

// Post is rendered post text plus optional facets
type Post struct {
	Text   string
	Facets []Facet
}

// Length is the post length in characters (runes)
func (p Post) Length() int {
	return utf8.RuneCountInString(p.Text)
}

// RichText renders the summary with link and tag facets
func RichText(s stats.Summary) Post {
	return fit(s, true, []string{"NowPlaying", "Music"})
}

// PlainText renders the summary with bare URLs
func PlainText(s stats.Summary) Post {
	return fit(s, false, []string{"NowPlaying", "Music", "Spotify"})
}

// span is a run of text that may carry a link or be a hashtag
type span struct {
	text string
	link string
	tag  string
}

type line []span

// layout selects which parts of the summary are rendered
type layout struct {
	tracks   int
	album    bool
	playlist bool
	tags     bool
	width    int
}

// fit renders progressively smaller layouts until one fits the budget.
// Sections are dropped from the end: hashtags, playlist, album, then tracks
// from the bottom up. Widths below minLabelWidth are only tried once every
// droppable section is gone.
func fit(s stats.Summary, rich bool, tags []string) Post {
	full := layout{
		tracks:   len(s.Tracks),
		album:    s.Album != nil,
		playlist: s.Playlist != nil,
		tags:     !s.Empty(),
	}

	layouts := shrink(full)
	try := func(ls []layout, minWidth int) (Post, bool) {
		for _, l := range ls {
			for _, w := range labelWidths {
				if w > 0 && w < minWidth {
					break
				}
				l.width = w
				p := render(compose(s, l, tags), rich)
				if p.Length() <= MaxLength {
					return p, true
				}
			}
		}
		return Post{}, false
	}

	// The last layout is header only, the one before it header plus top entry
	n := len(layouts)
	if p, ok := try(layouts[:n-1], minLabelWidth); ok {
		return p
	}
	if n >= 2 {
		if p, ok := try(layouts[n-2:n-1], 0); ok {
			return p
		}
	}

	// The header alone always fits
	return Post{Text: Header}
}

// shrink lists layouts from fullest to emptiest
func shrink(full layout) []layout {
	out := []layout{full}
	cur := full

	step := func(mut func(*layout)) {
		mut(&cur)
		out = append(out, cur)
	}

	if cur.tags {
		step(func(l *layout) { l.tags = false })
	}
	if cur.playlist {
		step(func(l *layout) { l.playlist = false })
	}
	if cur.album {
		step(func(l *layout) { l.album = false })
	}
	for cur.tracks > 0 {
		step(func(l *layout) { l.tracks-- })
	}
	return out
}

// compose builds the blocks of a post; blocks are separated by a blank line
func compose(s stats.Summary, l layout, tags []string) [][]line {
	blocks := [][]line{{{{text: Header}}}}

	var tracks []line
	for i, t := range s.Tracks[:l.tracks] {
		ln := line{
			{text: fmt.Sprintf("%d. ", i+1)},
			{text: truncate(t.Label(), l.width), link: t.URL},
		}
		if t.Plays > 1 {
			ln = append(ln, span{text: fmt.Sprintf(" (x%d)", t.Plays)})
		}
		tracks = append(tracks, ln)
	}
	if len(tracks) > 0 {
		blocks = append(blocks, tracks)
	}

	var highlights []line
	if l.album {
		highlights = append(highlights, line{
			{text: "📀 "},
			{text: truncate(s.Album.Label(), l.width), link: s.Album.URL},
		})
	}
	if l.playlist {
		highlights = append(highlights, line{
			{text: "📂 "},
			{text: truncate(s.Playlist.Name, l.width), link: s.Playlist.URL},
		})
	}
	if len(highlights) > 0 {
		blocks = append(blocks, highlights)
	}

	if l.tags && len(tags) > 0 {
		var ln line
		for i, tag := range tags {
			if i > 0 {
				ln = append(ln, span{text: " "})
			}
			ln = append(ln, span{text: "#" + tag, tag: tag})
		}
		blocks = append(blocks, []line{ln})
	}

	return blocks
}

// render writes blocks out, recording facets for links and tags when rich
func render(blocks [][]line, rich bool) Post {
	var b strings.Builder
	var facets []Facet

	for bi, block := range blocks {
		if bi > 0 {
			b.WriteString("\n\n")
		}
		for li, ln := range block {
			if li > 0 {
				b.WriteString("\n")
			}
			for _, sp := range ln {
				start := b.Len()
				b.WriteString(sp.text)

				switch {
				case sp.link != "" && rich:
					facets = append(facets, Facet{ByteStart: start, ByteEnd: b.Len(), URI: sp.link})
				case sp.link != "":
					b.WriteString(" ")
					b.WriteString(sp.link)
				case sp.tag != "" && rich:
					facets = append(facets, Facet{ByteStart: start, ByteEnd: b.Len(), Tag: sp.tag})
				}
			}
		}
	}

	return Post{Text: b.String(), Facets: facets}
}

// truncate shortens s to width display columns, ending in an ellipsis.
// A width of zero leaves s untouched.
func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, ellipsis)
}
