package processor

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultContextRadius is the number of characters kept on each side of a match
	DefaultContextRadius = 200
	// Ellipsis marks a snippet truncated at either end
	Ellipsis = "…"
)

// Window is a located match and the snippet bounds around it, in runes
type Window struct {
	Match  int // offset of the first rune of the match
	Length int // match length
	Start  int // snippet start, inclusive
	End    int // snippet end, exclusive
}

// Locator finds reference display text in one document's normalized text
type Locator struct {
	text   string
	runes  []rune
	radius int
}

// NewLocator prepares text for repeated lookups. A radius below zero uses
// DefaultContextRadius.
func NewLocator(text string, radius int) *Locator {
	if radius < 0 {
		radius = DefaultContextRadius
	}
	return &Locator{
		text:   text,
		runes:  []rune(text),
		radius: radius,
	}
}

// Find locates the first occurrence of key and widens the surrounding window
// outwards until both ends sit on a space, period or newline
func (l *Locator) Find(key string) (Window, bool) {
	if key == "" {
		return Window{}, false
	}

	idx := strings.Index(l.text, key)
	if idx < 0 {
		return Window{}, false
	}

	pos := utf8.RuneCountInString(l.text[:idx])
	length := utf8.RuneCountInString(key)
	n := len(l.runes)

	start := max(0, pos-l.radius)
	end := min(n, pos+length+l.radius)

	for start > 0 && !isSnippetBoundary(l.runes[start]) {
		start--
	}
	for end < n && !isSnippetBoundary(l.runes[end]) {
		end++
	}

	return Window{Match: pos, Length: length, Start: start, End: end}, true
}

// Snippet renders a window as trimmed text with ellipses on truncated ends
func (l *Locator) Snippet(w Window) string {
	snippet := strings.TrimSpace(string(l.runes[w.Start:w.End]))
	if w.Start > 0 {
		snippet = Ellipsis + snippet
	}
	if w.End < len(l.runes) {
		snippet += Ellipsis
	}
	return snippet
}

// Context returns the snippet around display, which may contain markup. When
// the cleaned display text does not occur in the document the raw display
// text is returned and found is false.
func (l *Locator) Context(display string) (context string, found bool) {
	w, ok := l.Find(CleanText(display))
	if !ok {
		return display, false
	}
	return l.Snippet(w), true
}

// ExtractContext is a one-shot Locator.Context with the default radius
func ExtractContext(text, display string) string {
	context, _ := NewLocator(text, DefaultContextRadius).Context(display)
	return context
}

func isSnippetBoundary(r rune) bool {
	return r == ' ' || r == '.' || r == '\n'
}
