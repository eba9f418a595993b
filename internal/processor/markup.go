// Package processor turns commentary markup into corpus records: it strips
// markup to plain text, finds passage anchors, resolves their passage tokens
// and carves a context window around each reference.
package processor

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	scriptBlockRe = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleBlockRe  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	anyTagRe      = regexp.MustCompile(`<[^>]+>`)

	// tagSpanRe matches anything that still reads as a tag: '<' followed by a
	// name, a closing slash, a declaration or a processing instruction.
	tagSpanRe = regexp.MustCompile(`<[A-Za-z!/?][^<>]*>`)

	titleRe = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
)

// ExtractText returns the text content of markup, with script and style
// contents removed and text segments joined by single spaces. It never fails:
// if tokenizing breaks down the markup is stripped with patterns instead.
// Whitespace is not normalized; see NormalizeWhitespace.
func ExtractText(markup string) string {
	text, err := extractTokens(markup)
	if err != nil {
		text = stripWithPatterns(markup)
	}
	return stripTagSpans(text)
}

// CleanText is ExtractText followed by NormalizeWhitespace
func CleanText(markup string) string {
	return NormalizeWhitespace(ExtractText(markup))
}

// NormalizeWhitespace collapses every run of whitespace into a single space
// and trims the ends
func NormalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// ExtractTitle returns the trimmed contents of the TITLE element with prefix
// removed, or "Unknown" when there is no title
func ExtractTitle(markup, prefix string) string {
	match := titleRe.FindStringSubmatch(markup)
	if match == nil {
		return "Unknown"
	}

	title := strings.TrimSpace(match[1])
	if prefix != "" {
		title = strings.ReplaceAll(title, prefix, "")
	}
	return title
}

// extractTokens walks the markup with the html tokenizer. A panic inside the
// tokenizer is turned into an error so the caller can fall back.
func extractTokens(markup string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tokenizer panic: %v", r)
		}
	}()

	z := html.NewTokenizer(strings.NewReader(markup))

	var parts []string
	inScript, inStyle := false, false

	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return strings.Join(parts, " "), nil
			}
			return "", fmt.Errorf("failed to tokenize markup: %w", z.Err())

		case html.TextToken:
			if !inScript && !inStyle {
				parts = append(parts, string(z.Text()))
			}

		case html.StartTagToken:
			name, _ := z.TagName()
			switch atom.Lookup(name) {
			case atom.Script:
				inScript = true
			case atom.Style:
				inStyle = true
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			switch atom.Lookup(name) {
			case atom.Script:
				inScript = false
			case atom.Style:
				inStyle = false
			}
		}
	}
}

// stripWithPatterns is the fallback path: drop script and style blocks, then
// every remaining angle-bracket span
func stripWithPatterns(markup string) string {
	text := scriptBlockRe.ReplaceAllString(markup, "")
	text = styleBlockRe.ReplaceAllString(text, "")
	return anyTagRe.ReplaceAllString(text, "")
}

// stripTagSpans removes tag-shaped text, such as escaped markup that the
// tokenizer decoded back into "<b>". Removal can expose a new span
// ("<<b>a>"), so it repeats until nothing matches.
func stripTagSpans(text string) string {
	for tagSpanRe.MatchString(text) {
		text = tagSpanRe.ReplaceAllString(text, "")
	}
	return text
}
