//go:build unit

package markdown

import (
	"fmt"
	"fyrewiki/internal/data"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestTransformBlocks(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "heading and paragraph",
			src:  "# Title\n\nHello *World*.",
			want: "<h1 id=\"Title\">Title</h1>\n<p>Hello <em>World</em>.</p>",
		},
		{
			name: "infobox header and labeled row",
			src:  "{\n# H\nLabel | Value\n}",
			want: "<table class=\"infobox\"><tbody>\n" +
				"<tr><th class=\"infobox-above\" colspan=\"2\">H</th></tr>\n" +
				"<tr><th scope=\"row\" class=\"infobox-label\">Label</th><td class=\"infobox-data\">Value</td></tr>\n" +
				"</tbody></table>",
		},
		{
			name: "infobox subheader subtitle and plain row",
			src:  "{\n## Sub\n### Group\nJust text\n}",
			want: "<table class=\"infobox\"><tbody>\n" +
				"<tr><td class=\"infobox-subheader\" colspan=\"2\">Sub</td></tr>\n" +
				"<tr><th class=\"infobox-subtitle\" colspan=\"2\">Group</th></tr>\n" +
				"<tr><th scope=\"row\" class=\"infobox-label\" colspan=\"2\">Just text</th></tr>\n" +
				"</tbody></table>",
		},
		{
			name: "infobox splits on the first bar only",
			src:  "{\nA | b | c\n}",
			want: "<table class=\"infobox\"><tbody>\n" +
				"<tr><th scope=\"row\" class=\"infobox-label\">A</th><td class=\"infobox-data\">b | c</td></tr>\n" +
				"</tbody></table>",
		},
		{
			name: "unterminated infobox is closed at end of input",
			src:  "{\nA | B",
			want: "<table class=\"infobox\"><tbody>\n" +
				"<tr><th scope=\"row\" class=\"infobox-label\">A</th><td class=\"infobox-data\">B</td></tr>\n" +
				"</tbody></table>",
		},
		{
			name: "ordered list",
			src:  "1. a\n2. b",
			want: "<ol>\n    <li>a</li>\n    <li>b</li>\n</ol>",
		},
		{
			name: "unordered list switches to ordered",
			src:  "- a\n- b\n1. c",
			want: "<ul>\n    <li>a</li>\n    <li>b</li>\n</ul>\n<ol>\n    <li>c</li>\n</ol>",
		},
		{
			name: "list closed by paragraph",
			src:  "- a\ntext",
			want: "<ul>\n    <li>a</li>\n</ul>\n<p>text</p>",
		},
		{
			name: "list closed by blank line",
			src:  "- a\n\n- b",
			want: "<ul>\n    <li>a</li>\n</ul>\n<ul>\n    <li>b</li>\n</ul>",
		},
		{
			name: "table",
			src:  "[\n= Name = Age =\n\nBob | 42\n]",
			want: "<div class=\"table-main\"><table>\n" +
				"<tr><th>Name</th><th>Age</th></tr>\n" +
				"<tr><td>Bob</td><td>42</td></tr>\n" +
				"</table></div>",
		},
		{
			name: "blockquote and rule",
			src:  "> quoted *x*\n---",
			want: "<blockquote>quoted <em>x</em></blockquote>\n<hr>",
		},
		{
			name: "decimal number is not a list",
			src:  "1.5 is a number",
			want: "<p>1.5 is a number</p>",
		},
		{
			name: "text is escaped",
			src:  "a < b & c",
			want: "<p>a &lt; b &amp; c</p>",
		},
		{
			name: "heading level is capped",
			src:  "######## Deep",
			want: "<h6 id=\"Deep\">Deep</h6>",
		},
		{
			name: "crlf line endings",
			src:  "## Sub Title\r\nbody",
			want: "<h2 id=\"SubTitle\">Sub Title</h2>\n<p>body</p>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := Transform(tt.src, nil)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Transform(%q) mismatch (-want +got):\n%s", tt.src, diff)
			}
		})
	}
}

// inlineHTML renders a single paragraph and strips the <p> wrapper.
func inlineHTML(src string, links []string) string {
	body, _ := Transform(src, links)
	return strings.TrimSuffix(strings.TrimPrefix(body, "<p>"), "</p>")
}

func TestInlineFormatting(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello *World*.", "Hello <em>World</em>."},
		{"**bold**", "<strong>bold</strong>"},
		{"***both***", "<strong><em>both</em></strong>"},
		{"**bold *and* italic**", "<strong>bold <em>and</em> italic</strong>"},
		{"~~gone~~", "<s>gone</s>"},
		{"`a*b`", "<code>a*b</code>"},
		{"`<tag>`", "<code>&lt;tag&gt;</code>"},
		{"a *b c", "a *b c"},
		{"2 * 3 = 6", "2 * 3 = 6"},
		{"*x* then **y and *z*", "<em>x</em> then **y and *z*"},
		{"`code` and `open *x*", "<code>code</code> and `open *x*"},
		{"~~a~~ and ~~b", "<s>a</s> and ~~b"},
		{"**a ***b** c***", "**a <strong><em>b** c</em></strong>"},
		{"***a** b* and **x*** y", "<strong><em>a<strong> b* and </strong>x</em></strong> y"},
	}
	for _, tt := range tests {
		if got := inlineHTML(tt.in, nil); got != tt.want {
			t.Errorf("inline(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAutoLinking(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		links []string
		want  string
	}{
		{
			name:  "plain text links, brackets and parentheses do not",
			in:    "See Foo and [Foo] and (Foo).",
			links: []string{"Foo"},
			want:  `See <a href="/page?page=Foo">Foo</a> and [Foo] and (Foo).`,
		},
		{
			name:  "case insensitive whole words",
			in:    "foo food",
			links: []string{"Foo"},
			want:  `<a href="/page?page=Foo">foo</a> food`,
		},
		{
			name:  "longest title wins",
			in:    "I love New York",
			links: []string{"New", "New York"},
			want:  `I love <a href="/page?page=New+York">New York</a>`,
		},
		{
			name:  "link inside emphasis",
			in:    "*Foo*",
			links: []string{"Foo"},
			want:  `<em><a href="/page?page=Foo">Foo</a></em>`,
		},
		{
			name:  "code spans are not linked",
			in:    "`Foo` Foo",
			links: []string{"Foo"},
			want:  `<code>Foo</code> <a href="/page?page=Foo">Foo</a>`,
		},
		{
			name:  "escaped titles",
			in:    "Tom & Jerry rock",
			links: []string{"Tom & Jerry"},
			want:  `<a href="/page?page=Tom+%26+Jerry">Tom &amp; Jerry</a> rock`,
		},
		{
			name:  "titles never match inside named entities",
			in:    "Tom & Jerry",
			links: []string{"amp"},
			want:  "Tom &amp; Jerry",
		},
		{
			name:  "titles never match inside numeric entities",
			in:    "it's",
			links: []string{"39"},
			want:  "it&#39;s",
		},
		{
			name:  "non-ASCII letters are word characters",
			in:    "I visited Cafés today",
			links: []string{"Café"},
			want:  "I visited Cafés today",
		},
		{
			name:  "non-ASCII title as a whole word",
			in:    "Meet at café Über, then Übermut",
			links: []string{"Café", "Über"},
			want:  `Meet at <a href="/page?page=Caf%C3%A9">café</a> <a href="/page?page=%C3%9Cber">Über</a>, then Übermut`,
		},
		{
			name:  "shorter title links when the longer one is not a whole word",
			in:    "New York Cx",
			links: []string{"New York", "New York C"},
			want:  `<a href="/page?page=New+York">New York</a> Cx`,
		},
		{
			name:  "empty titles are ignored",
			in:    "nothing here",
			links: []string{"", "  "},
			want:  "nothing here",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inlineHTML(tt.in, tt.links); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAutoLinkingInTableCells(t *testing.T) {
	got, _ := Transform("[\nFoo | Bar\n]", []string{"Foo"})
	want := "<div class=\"table-main\"><table>\n" +
		"<tr><td><a href=\"/page?page=Foo\">Foo</a></td><td>Bar</td></tr>\n" +
		"</table></div>"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestTransformTOC(t *testing.T) {
	_, toc := Transform("# Title\n\nHello *World*.", nil)
	want := []TOCEntry{{Text: "Title", Level: 1, ID: "Title"}}
	if diff := cmp.Diff(want, toc); diff != "" {
		t.Errorf("toc mismatch (-want +got):\n%s", diff)
	}

	_, toc = Transform("## Getting Started\ntext\n### Install It\n{\n# Not A Heading\n}", nil)
	want = []TOCEntry{
		{Text: "Getting Started", Level: 2, ID: "GettingStarted"},
		{Text: "Install It", Level: 3, ID: "InstallIt"},
	}
	if diff := cmp.Diff(want, toc); diff != "" {
		t.Errorf("toc mismatch (-want +got):\n%s", diff)
	}
}

func TestHeadingsMatchTOC(t *testing.T) {
	body, toc := Transform(DefaultMarkdown, nil)
	headings := regexp.MustCompile(`<h(\d) id="([^"]*)">`).FindAllStringSubmatch(body, -1)

	if len(headings) != len(toc) {
		t.Fatalf("found %d headings but %d toc entries", len(headings), len(toc))
	}
	for i, h := range headings {
		level, _ := strconv.Atoi(h[1])
		if toc[i].Level != level || toc[i].ID != h[2] {
			t.Errorf("heading %d is (h%d, %q), toc has (%d, %q)", i, level, h[2], toc[i].Level, toc[i].ID)
		}
	}
}

func renderContext(role data.Role, others []string) RenderContext {
	return RenderContext{
		Source:       "## Overview\nSee Home for more.",
		Title:        "My Page",
		LastEditedAt: time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC),
		LastEditor:   "Ada",
		OtherTitles:  others,
		Role:         role,
	}
}

func TestRenderChrome(t *testing.T) {
	doc := Render(renderContext(data.RoleEditor, []string{"Home", "My Page", "Other"}))
	html := string(doc.HTML)

	for _, want := range []string{
		`<h1 class="col-md-8 page-header" id="MyPage">My Page</h1>`,
		`Edited <span class="text-success">Mar 09, 2024 - 02:30 PM</span> by <span class="text-primary">Ada</span>`,
		`<a href="editor?page=My+Page" class="nav-right">Edit</a>`,
		`<a href="/delete-page?page=My+Page" class="delete">Delete</a>`,
		`<li class="toc-1"><a href="#Overview">Overview</a></li>`,
		`<li><a href="/page?page=Home">Home</a></li>`,
		`<li><a href="/page?page=Other">Other</a></li>`,
		`<div class="wiki-post">` + "\n" + doc.Body + "\n</div>",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered page is missing %q", want)
		}
	}
	if strings.Contains(html, `<li><a href="/page?page=My+Page">`) {
		t.Error("the page itself should not be listed as recently edited")
	}
	if doc.Body != "<h2 id=\"Overview\">Overview</h2>\n<p>See <a href=\"/page?page=Home\">Home</a> for more.</p>" {
		t.Errorf("unexpected body %q", doc.Body)
	}
}

func TestRenderViewerHasNoEditLinks(t *testing.T) {
	html := string(Render(renderContext(data.RoleViewer, nil)).HTML)

	if strings.Contains(html, "Edit</a>") || strings.Contains(html, "Delete</a>") {
		t.Error("viewer should not see edit or delete links")
	}
	if !strings.Contains(html, `<a href="" class="nav-right"></a>`) {
		t.Error("viewer navigation should keep the empty right-hand slot")
	}
}

func TestRenderLimitsRecentPages(t *testing.T) {
	var others []string
	for i := 0; i < 20; i++ {
		others = append(others, fmt.Sprintf("Page%02d", i))
	}
	html := string(Render(renderContext(data.RoleAdmin, others)).HTML)

	if n := strings.Count(html, `<li><a href="/page?page=`); n != RecentLimit {
		t.Errorf("expected %d recent pages, got %d", RecentLimit, n)
	}
	if !strings.Contains(html, "Page14") || strings.Contains(html, "Page15") {
		t.Error("expected exactly the first fifteen titles in recency order")
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	rc := renderContext(data.RoleEditor, []string{"Home", "Overview", "Lorem"})
	rc.Source = DefaultMarkdown

	first := Render(rc)
	second := Render(rc)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("render is not deterministic (-first +second):\n%s", diff)
	}
}

func TestLinkCandidates(t *testing.T) {
	others := []string{"A", "Self", "B"}
	got := LinkCandidates("Self", others)
	if diff := cmp.Diff([]string{"A", "B"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"A", "Self", "B"}, others); diff != "" {
		t.Errorf("input was modified (-want +got):\n%s", diff)
	}

	got = LinkCandidates("Missing", others)
	if diff := cmp.Diff(others, got); diff != "" {
		t.Errorf("absent title should be a no-op (-want +got):\n%s", diff)
	}
}
