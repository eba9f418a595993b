package processor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"commentary-rag/internal/bible"
	"commentary-rag/internal/models"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// ErrUnparseable is returned for passage tokens that do not resolve to a book and chapter
var ErrUnparseable = errors.New("unparseable passage")

// passageGrammar reads an abbreviated citation such as "1 Co 13:4-7" or
// "Ps 23". Whitespace is significant so that "Ps 23 4" stops after the chapter.
//
//nolint:govet // participle grammar tags are not standard struct tags
type passageGrammar struct {
	Prefix  string `@Digits?`
	Book    string `Space? @Letters`
	Chapter string `Space? @Digits`
	Verses  string `":"? @( Digits | "," | "-" )*`
}

var passageLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Digits", Pattern: `[0-9]+`},
	{Name: "Letters", Pattern: `[A-Za-z]+`},
	{Name: "Space", Pattern: `\s+`},
	{Name: "Punct", Pattern: `[:,\-]`},
	{Name: "Other", Pattern: `.`},
})

var passageParser = participle.MustBuild[passageGrammar](
	participle.Lexer(passageLexer),
)

// ParsePassage normalizes a raw passage token (as found in a link's passage
// parameter) into a canonical reference. Anything after the verse expression
// is ignored.
func ParsePassage(token string) (*models.ParsedPassage, error) {
	s := strings.TrimSpace(strings.ReplaceAll(token, "+", " "))
	if s == "" {
		return nil, fmt.Errorf("%w: empty token", ErrUnparseable)
	}

	parsed, err := passageParser.ParseString("", s, participle.AllowTrailing(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnparseable, token)
	}

	// Only a single leading digit belongs to a book name (1 John, 2 Kings)
	if len(parsed.Prefix) > 1 {
		return nil, fmt.Errorf("%w: %q", ErrUnparseable, token)
	}

	book, ok := bible.LookupAbbreviation(parsed.Prefix + parsed.Book)
	if !ok {
		return nil, fmt.Errorf("%w: unknown book %q", ErrUnparseable, parsed.Prefix+parsed.Book)
	}

	chapter, err := strconv.Atoi(parsed.Chapter)
	if err != nil || chapter < 1 {
		return nil, fmt.Errorf("%w: bad chapter in %q", ErrUnparseable, token)
	}

	return NewParsedPassage(book, chapter, parsed.Verses), nil
}

// NewParsedPassage builds a passage and its display string
func NewParsedPassage(book string, chapter int, verses string) *models.ParsedPassage {
	display := fmt.Sprintf("%s %d", book, chapter)
	if verses != "" {
		display += ":" + verses
	}

	return &models.ParsedPassage{
		Book:    book,
		Chapter: chapter,
		Verses:  verses,
		Display: display,
	}
}
