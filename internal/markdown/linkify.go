package markdown

import (
	"html"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	anchorSpan  = regexp.MustCompile(`(?is)<a\b[^>]*>.*?</a>`)
	bracketSpan = regexp.MustCompile(`[\[(][^\])]*[\])]`)
	entitySpan  = regexp.MustCompile(`&(?:#[0-9]+|#[xX][0-9a-fA-F]+|[A-Za-z][A-Za-z0-9]*);`)
)

// linker turns whole-word, case-insensitive occurrences of page titles into
// links. It works on already-escaped text.
type linker struct {
	re     *regexp.Regexp // any title, unbounded; finds candidate starts
	pats   []titlePattern
	titles map[string]string // escaped, lower-cased match -> title
	order  []string
}

// titlePattern matches one title anchored at a candidate start. Word
// boundaries are checked by hand since regexp's \b only knows ASCII.
type titlePattern struct {
	re                 *regexp.Regexp
	wordStart, wordEnd bool
}

func newLinker(titles []string) *linker {
	seen := make(map[string]bool, len(titles))
	var uniq []string
	for _, t := range titles {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		uniq = append(uniq, t)
	}
	if len(uniq) == 0 {
		return nil
	}

	// Longer titles first so "New York City" wins over "New York".
	sort.SliceStable(uniq, func(i, j int) bool { return len(uniq[i]) > len(uniq[j]) })

	l := &linker{titles: make(map[string]string, len(uniq)), order: uniq}
	alts := make([]string, 0, len(uniq))
	for _, t := range uniq {
		escaped := html.EscapeString(t)
		key := strings.ToLower(escaped)
		if _, ok := l.titles[key]; !ok {
			l.titles[key] = t
		}
		quoted := regexp.QuoteMeta(escaped)
		alts = append(alts, quoted)

		first, _ := utf8.DecodeRuneInString(t)
		last, _ := utf8.DecodeLastRuneInString(t)
		l.pats = append(l.pats, titlePattern{
			re:        regexp.MustCompile(`(?i)^(?:` + quoted + `)`),
			wordStart: isWordRune(first),
			wordEnd:   isWordRune(last),
		})
	}
	l.re = regexp.MustCompile(`(?i)(?:` + strings.Join(alts, "|") + `)`)
	return l
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// apply links every whole-word title match that does not overlap an existing
// anchor or a bracketed or parenthesized span, and does not cut through a
// character entity.
func (l *linker) apply(s string) string {
	if l == nil || s == "" {
		return s
	}
	excluded := append(anchorSpan.FindAllStringIndex(s, -1), bracketSpan.FindAllStringIndex(s, -1)...)
	entities := entitySpan.FindAllStringIndex(s, -1)
	allowed := func(start, end int) bool {
		m := []int{start, end}
		return !overlapsAny(m, excluded) && !cutsAny(m, entities)
	}

	var b strings.Builder
	last, pos := 0, 0
	for pos < len(s) {
		loc := l.re.FindStringIndex(s[pos:])
		if loc == nil {
			break
		}
		start := pos + loc[0]
		end := l.matchAt(s, start, allowed)
		if end < 0 {
			_, size := utf8.DecodeRuneInString(s[start:])
			pos = start + size
			continue
		}
		text := s[start:end]
		b.WriteString(s[last:start])
		b.WriteString(`<a href="/page?page=`)
		b.WriteString(url.QueryEscape(l.title(text)))
		b.WriteString(`">`)
		b.WriteString(text)
		b.WriteString(`</a>`)
		last, pos = end, end
	}
	if last == 0 {
		return s
	}
	b.WriteString(s[last:])
	return b.String()
}

// matchAt returns the end of the longest title matching at start as a whole
// word, or -1.
func (l *linker) matchAt(s string, start int, allowed func(start, end int) bool) int {
	before, _ := utf8.DecodeLastRuneInString(s[:start])
	boundedBefore := start == 0 || !isWordRune(before)
	for _, p := range l.pats {
		if p.wordStart && !boundedBefore {
			continue
		}
		loc := p.re.FindStringIndex(s[start:])
		if loc == nil {
			continue
		}
		end := start + loc[1]
		if p.wordEnd && end < len(s) {
			if after, _ := utf8.DecodeRuneInString(s[end:]); isWordRune(after) {
				continue
			}
		}
		if allowed(start, end) {
			return end
		}
	}
	return -1
}

func (l *linker) title(match string) string {
	if t, ok := l.titles[strings.ToLower(match)]; ok {
		return t
	}
	for _, t := range l.order {
		if strings.EqualFold(html.EscapeString(t), match) {
			return t
		}
	}
	return html.UnescapeString(match)
}

func overlapsAny(m []int, spans [][]int) bool {
	for _, sp := range spans {
		if m[0] < sp[1] && sp[0] < m[1] {
			return true
		}
	}
	return false
}

// cutsAny reports whether m splits one of spans, overlapping it without
// containing it whole.
func cutsAny(m []int, spans [][]int) bool {
	for _, sp := range spans {
		inside := m[0] <= sp[0] && sp[1] <= m[1]
		if m[0] < sp[1] && sp[0] < m[1] && !inside {
			return true
		}
	}
	return false
}
