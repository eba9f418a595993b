package processor

import (
	"regexp"
)

// attrRe matches one run of attribute text, letting quoted values contain '>'.
// A lone quote is accepted so malformed markup still matches.
const attrRe = `(?:[^>"']|"[^"]*"|'[^']*'|["'])`

var (
	// anchorRe matches an anchor element, capturing the href value (double
	// quoted, single quoted or bare) and the raw inner markup
	anchorRe = regexp.MustCompile(`(?is)<a\s+(?:` + attrRe + `*?\s)?href\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s>"']+))` +
		attrRe + `*>(.*?)</a\s*>`)

	passageParamRe = regexp.MustCompile(`(?i)passage=([^&]+)`)
)

// Anchor is a passage link found in raw markup
type Anchor struct {
	Token   string // passage query value, e.g. "Ps+23:1-3"
	Display string // raw inner markup of the anchor
}

// ScanAnchors returns, in document order, every anchor whose href carries a
// passage query parameter. Anchors without one are skipped.
func ScanAnchors(markup string) []Anchor {
	var anchors []Anchor

	for _, match := range anchorRe.FindAllStringSubmatch(markup, -1) {
		href := match[1] + match[2] + match[3]

		param := passageParamRe.FindStringSubmatch(href)
		if param == nil {
			continue
		}

		anchors = append(anchors, Anchor{
			Token:   param[1],
			Display: match[4],
		})
	}

	return anchors
}
