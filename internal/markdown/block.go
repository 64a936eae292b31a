package markdown

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode"
)

// maxHeadingLevel is the deepest heading HTML can express.
const maxHeadingLevel = 6

type blockKind int

const (
	blockNone blockKind = iota
	blockInfobox
	blockTable
)

type listKind int

const (
	listNone listKind = iota
	listOrdered
	listUnordered
)

var orderedItem = regexp.MustCompile(`^\d+\.(\s|$)`)

type parser struct {
	out   []string
	toc   []TOCEntry
	links *linker
	block blockKind
	list  listKind
}

// Transform renders source without page chrome and returns the HTML body
// together with the headings it contains, in document order.
func Transform(source string, links []string) (string, []TOCEntry) {
	p := &parser{links: newLinker(links)}
	source = strings.Map(dropReserved, strings.ReplaceAll(source, "\r\n", "\n"))
	for _, line := range strings.Split(source, "\n") {
		p.line(line)
	}
	p.finish()
	return strings.Join(p.out, "\n"), p.toc
}

// dropReserved removes NUL and the private-use runes used as code span placeholders.
func dropReserved(r rune) rune {
	if r == 0 || (r >= placeholderOpen && r <= placeholderDigit0+9) {
		return -1
	}
	return r
}

func (p *parser) emit(s string) {
	p.out = append(p.out, s)
}

func (p *parser) line(raw string) {
	line := strings.TrimSpace(raw)

	switch p.block {
	case blockInfobox:
		if line == "}" {
			p.emit("</tbody></table>")
			p.block = blockNone
		} else if line != "" {
			p.emit(p.infoboxRow(line))
		}
		return
	case blockTable:
		if line == "]" {
			p.emit("</table></div>")
			p.block = blockNone
		} else if line != "" {
			p.emit(p.tableRow(line))
		}
		return
	}

	switch {
	case line == "":
		p.closeList()
	case line == "{":
		p.closeList()
		p.emit(`<table class="infobox"><tbody>`)
		p.block = blockInfobox
	case line == "[":
		p.closeList()
		p.emit(`<div class="table-main"><table>`)
		p.block = blockTable
	case strings.HasPrefix(line, "#"):
		p.closeList()
		p.heading(line)
	case strings.HasPrefix(line, ">"):
		p.closeList()
		p.emit("<blockquote>" + p.inline(strings.TrimSpace(line[1:])) + "</blockquote>")
	case line == "---":
		p.closeList()
		p.emit("<hr>")
	case orderedItem.MatchString(line):
		_, text, _ := strings.Cut(line, ".")
		p.listItem(listOrdered, strings.TrimSpace(text))
	case strings.HasPrefix(line, "-"):
		p.listItem(listUnordered, strings.TrimSpace(line[1:]))
	default:
		p.closeList()
		p.emit("<p>" + p.inline(line) + "</p>")
	}
}

func (p *parser) finish() {
	p.closeList()
	switch p.block {
	case blockInfobox:
		p.emit("</tbody></table>")
	case blockTable:
		p.emit("</table></div>")
	}
	p.block = blockNone
}

func (p *parser) heading(line string) {
	level := len(line) - len(strings.TrimLeft(line, "#"))
	text := strings.TrimSpace(line[level:])
	if level > maxHeadingLevel {
		level = maxHeadingLevel
	}
	id := headingID(text)
	p.emit(fmt.Sprintf(`<h%d id="%s">%s</h%d>`, level, html.EscapeString(id), html.EscapeString(text), level))
	p.toc = append(p.toc, TOCEntry{Text: text, Level: level, ID: id})
}

// headingID is the anchor for a heading: its text with spaces removed.
func headingID(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
}

func (p *parser) listItem(kind listKind, text string) {
	if p.list != kind {
		p.closeList()
		if kind == listOrdered {
			p.emit("<ol>")
		} else {
			p.emit("<ul>")
		}
		p.list = kind
	}
	p.emit("    <li>" + p.inline(text) + "</li>")
}

func (p *parser) closeList() {
	switch p.list {
	case listOrdered:
		p.emit("</ol>")
	case listUnordered:
		p.emit("</ul>")
	}
	p.list = listNone
}

func (p *parser) infoboxRow(line string) string {
	switch {
	case strings.HasPrefix(line, "# "):
		return fmt.Sprintf(`<tr><th class="infobox-above" colspan="2">%s</th></tr>`, escapeTrim(line[2:]))
	case strings.HasPrefix(line, "## "):
		return fmt.Sprintf(`<tr><td class="infobox-subheader" colspan="2">%s</td></tr>`, escapeTrim(line[3:]))
	case strings.HasPrefix(line, "### "):
		return fmt.Sprintf(`<tr><th class="infobox-subtitle" colspan="2">%s</th></tr>`, escapeTrim(line[4:]))
	case strings.Contains(line, "|"):
		label, value, _ := strings.Cut(line, "|")
		return fmt.Sprintf(`<tr><th scope="row" class="infobox-label">%s</th><td class="infobox-data">%s</td></tr>`,
			escapeTrim(label), p.inline(strings.TrimSpace(value)))
	default:
		return fmt.Sprintf(`<tr><th scope="row" class="infobox-label" colspan="2">%s</th></tr>`, escapeTrim(line))
	}
}

func (p *parser) tableRow(line string) string {
	var b strings.Builder
	b.WriteString("<tr>")
	switch {
	case strings.HasPrefix(line, "="):
		for _, cell := range cells(line, "=") {
			b.WriteString("<th>" + html.EscapeString(cell) + "</th>")
		}
	case strings.Contains(line, "|"):
		for _, cell := range cells(line, "|") {
			b.WriteString("<td>" + p.inline(cell) + "</td>")
		}
	default:
		b.WriteString("<td>" + p.inline(line) + "</td>")
	}
	b.WriteString("</tr>")
	return b.String()
}

// cells splits a table row and keeps the non-empty trimmed segments.
func cells(line, sep string) []string {
	var out []string
	for _, seg := range strings.Split(line, sep) {
		if seg = strings.TrimSpace(seg); seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

func escapeTrim(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}
