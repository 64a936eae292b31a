// Package markdown renders the wiki's markdown dialect to HTML.
//
// The dialect is line oriented. Besides headings, lists, blockquotes, rules
// and paragraphs it has two delimited blocks: an infobox opened by a line
// holding only "{" and closed by "}", and a table opened by "[" and closed
// by "]". Inline text is HTML-escaped, known page titles are linked, and
// *, **, ***, ` and ~~ spans are formatted.
//
// Rendering is a pure function of its inputs.
package markdown

import (
	"fyrewiki/internal/data"
	"html/template"
	"time"
)

// DateLayout is the byline date format.
const DateLayout = "Jan 02, 2006 - 03:04 PM"

// RecentLimit caps the "Recently Edited Pages" sidebar.
const RecentLimit = 15

// RenderContext is everything a page render depends on.
type RenderContext struct {
	Source       string
	Title        string
	LastEditedAt time.Time
	LastEditor   string
	// OtherTitles lists page titles most recently edited first.
	OtherTitles []string
	Role        data.Role
}

// TOCEntry is one heading collected while rendering.
type TOCEntry struct {
	Text  string
	Level int
	ID    string
}

// Document is a rendered page.
type Document struct {
	// HTML is the body wrapped in page chrome.
	HTML template.HTML
	// Body is the transformed markdown alone.
	Body string
	TOC  []TOCEntry
}

// Render transforms rc.Source and wraps it in the page chrome.
func Render(rc RenderContext) *Document {
	links := LinkCandidates(rc.Title, rc.OtherTitles)
	body, toc := Transform(rc.Source, links)
	return &Document{
		HTML: template.HTML(chrome(rc, links, body, toc)),
		Body: body,
		TOC:  toc,
	}
}

// LinkCandidates returns others without title. The input is not modified.
func LinkCandidates(title string, others []string) []string {
	out := make([]string, 0, len(others))
	for _, t := range others {
		if t == title {
			continue
		}
		out = append(out, t)
	}
	return out
}
