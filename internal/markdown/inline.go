package markdown

import (
	"html"
	"strconv"
	"strings"
)

// Code spans are swapped out for private-use runes while the other inline
// passes run, so their contents are never linked or formatted.
const (
	placeholderOpen   = '\uE000'
	placeholderClose  = '\uE001'
	placeholderDigit0 = '\uE010'
)

type delimiter struct {
	marker, open, close string
}

// Bold markers resolve before single emphasis.
var delimiters = []delimiter{
	{"***", "<strong><em>", "</em></strong>"},
	{"**", "<strong>", "</strong>"},
	{"*", "<em>", "</em>"},
	{"~~", "<s>", "</s>"},
}

// inline escapes text and applies code spans, auto-links and emphasis.
// Everything from the first unbalanced delimiter onwards is emitted literally.
func (p *parser) inline(text string) string {
	s, limit, codes := protectCode(html.EscapeString(text))

	head := p.links.apply(s[:limit])
	s, limit = head+s[limit:], len(head)

	for _, d := range delimiters {
		s, limit = d.apply(s, limit)
	}
	return restoreCode(s, codes)
}

// apply wraps every balanced pair of d.marker found before limit. An opener
// without a closer, or whose pairing would straddle tags emitted by an
// earlier pass, moves limit back to the opener.
func (d delimiter) apply(s string, limit int) (string, int) {
	pos := 0
	for {
		i := indexOutsideTags(s, d.marker, pos, limit)
		if i < 0 {
			return s, limit
		}
		j := indexOutsideTags(s, d.marker, i+len(d.marker), limit)
		if j < 0 || !tagsBalanced(s[i+len(d.marker):j]) {
			return s, i
		}
		end := j + len(d.marker)
		repl := d.open + s[i+len(d.marker):j] + d.close
		s = s[:i] + repl + s[end:]
		limit += len(repl) - (end - i)
		pos = i + len(repl)
	}
}

// tagsBalanced reports whether every tag opened in s is closed in s and no
// tag is closed that s did not open.
func tagsBalanced(s string) bool {
	depth := 0
	for {
		i := strings.IndexByte(s, '<')
		if i < 0 {
			return depth == 0
		}
		s = s[i+1:]
		if strings.HasPrefix(s, "/") {
			depth--
		} else {
			depth++
		}
		if depth < 0 {
			return false
		}
	}
}

// indexOutsideTags finds marker at or after from, ending at or before limit,
// skipping anything inside an HTML tag.
func indexOutsideTags(s, marker string, from, limit int) int {
	inTag := false
	for i := 0; i+len(marker) <= limit; i++ {
		switch {
		case inTag:
			if s[i] == '>' {
				inTag = false
			}
		case s[i] == '<':
			inTag = true
		case i >= from && strings.HasPrefix(s[i:], marker):
			return i
		}
	}
	return -1
}

// protectCode replaces backtick spans with placeholders. limit is the length
// of the prefix that may still be formatted; it stops at a lone backtick.
func protectCode(s string) (out string, limit int, codes []string) {
	var b strings.Builder
	rest := s
	for {
		i := strings.IndexByte(rest, '`')
		if i < 0 {
			b.WriteString(rest)
			return b.String(), b.Len(), codes
		}
		j := strings.IndexByte(rest[i+1:], '`')
		if j < 0 {
			b.WriteString(rest[:i])
			limit = b.Len()
			b.WriteString(rest[i:])
			return b.String(), limit, codes
		}
		b.WriteString(rest[:i])
		b.WriteString(placeholder(len(codes)))
		codes = append(codes, "<code>"+rest[i+1:i+1+j]+"</code>")
		rest = rest[i+j+2:]
	}
}

func placeholder(n int) string {
	var b strings.Builder
	b.WriteRune(placeholderOpen)
	for _, c := range []byte(strconv.Itoa(n)) {
		b.WriteRune(placeholderDigit0 + rune(c-'0'))
	}
	b.WriteRune(placeholderClose)
	return b.String()
}

func restoreCode(s string, codes []string) string {
	if len(codes) == 0 {
		return s
	}
	pairs := make([]string, 0, 2*len(codes))
	for i, c := range codes {
		pairs = append(pairs, placeholder(i), c)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}
