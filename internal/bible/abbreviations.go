package bible

import (
	"maps"
	"strings"
	"unicode"
)

type bookAbbreviations struct {
	book string
	keys []string
}

// abbreviationList is declared in canonical order. When a key is listed under
// more than one book the later declaration wins ("jud" resolves to Jude).
var abbreviationList = []bookAbbreviations{
	{"Genesis", []string{"genesis", "gen", "ge", "gn"}},
	{"Exodus", []string{"exodus", "exod", "exo", "ex"}},
	{"Leviticus", []string{"leviticus", "lev", "le", "lv"}},
	{"Numbers", []string{"numbers", "num", "nu", "nm", "nb"}},
	{"Deuteronomy", []string{"deuteronomy", "deut", "deu", "de", "dt"}},
	{"Joshua", []string{"joshua", "josh", "jos", "jsh"}},
	{"Judges", []string{"judges", "judg", "jdg", "jdgs", "jg", "jud"}},
	{"Ruth", []string{"ruth", "rth", "ru"}},
	{"1 Samuel", []string{"1samuel", "1sam", "1sa", "1sm", "1s"}},
	{"2 Samuel", []string{"2samuel", "2sam", "2sa", "2sm", "2s"}},
	{"1 Kings", []string{"1kings", "1kgs", "1ki", "1kin", "1k"}},
	{"2 Kings", []string{"2kings", "2kgs", "2ki", "2kin", "2k"}},
	{"1 Chronicles", []string{"1chronicles", "1chron", "1chr", "1ch"}},
	{"2 Chronicles", []string{"2chronicles", "2chron", "2chr", "2ch"}},
	{"Ezra", []string{"ezra", "ezr"}},
	{"Nehemiah", []string{"nehemiah", "neh", "ne"}},
	{"Esther", []string{"esther", "esth", "est", "es"}},
	{"Job", []string{"job", "jb"}},
	{"Psalms", []string{"psalms", "psalm", "pss", "ps", "psa", "psm"}},
	{"Proverbs", []string{"proverbs", "prov", "pro", "prv", "pr"}},
	{"Ecclesiastes", []string{"ecclesiastes", "eccles", "eccl", "ecc", "ec", "qoh"}},
	{"Song of Solomon", []string{"songofsolomon", "songofsongs", "song", "sos", "so", "canticles", "cant", "sol"}},
	{"Isaiah", []string{"isaiah", "isa", "is"}},
	{"Jeremiah", []string{"jeremiah", "jer", "je", "jr"}},
	{"Lamentations", []string{"lamentations", "lam", "la"}},
	{"Ezekiel", []string{"ezekiel", "ezek", "eze", "ezk"}},
	{"Daniel", []string{"daniel", "dan", "da", "dn"}},
	{"Hosea", []string{"hosea", "hos", "ho"}},
	{"Joel", []string{"joel", "joe", "jl"}},
	{"Amos", []string{"amos", "amo", "am"}},
	{"Obadiah", []string{"obadiah", "obad", "oba", "ob"}},
	{"Jonah", []string{"jonah", "jon", "jnh"}},
	{"Micah", []string{"micah", "mic", "mi"}},
	{"Nahum", []string{"nahum", "nah", "na"}},
	{"Habakkuk", []string{"habakkuk", "hab", "hb"}},
	{"Zephaniah", []string{"zephaniah", "zeph", "zep", "zp"}},
	{"Haggai", []string{"haggai", "hag", "hg"}},
	{"Zechariah", []string{"zechariah", "zech", "zec", "zc"}},
	{"Malachi", []string{"malachi", "mal", "ml"}},
	{"Matthew", []string{"matthew", "matt", "mat", "mt"}},
	{"Mark", []string{"mark", "mar", "mrk", "mr", "mk"}},
	{"Luke", []string{"luke", "luk", "lu", "lk"}},
	{"John", []string{"john", "joh", "jhn", "jn"}},
	{"Acts", []string{"acts", "act", "ac"}},
	{"Romans", []string{"romans", "rom", "ro", "rm"}},
	{"1 Corinthians", []string{"1corinthians", "1cor", "1co"}},
	{"2 Corinthians", []string{"2corinthians", "2cor", "2co"}},
	{"Galatians", []string{"galatians", "gal", "ga"}},
	{"Ephesians", []string{"ephesians", "ephes", "eph"}},
	{"Philippians", []string{"philippians", "phil", "php", "pp"}},
	{"Colossians", []string{"colossians", "col", "co"}},
	{"1 Thessalonians", []string{"1thessalonians", "1thess", "1thes", "1th"}},
	{"2 Thessalonians", []string{"2thessalonians", "2thess", "2thes", "2th"}},
	{"1 Timothy", []string{"1timothy", "1tim", "1ti", "1tm"}},
	{"2 Timothy", []string{"2timothy", "2tim", "2ti", "2tm"}},
	{"Titus", []string{"titus", "tit", "ti"}},
	{"Philemon", []string{"philemon", "philem", "phile", "phlm", "phm"}},
	{"Hebrews", []string{"hebrews", "heb", "he"}},
	{"James", []string{"james", "jas", "jam", "jm"}},
	{"1 Peter", []string{"1peter", "1pet", "1pe", "1pt", "1p"}},
	{"2 Peter", []string{"2peter", "2pet", "2pe", "2pt", "2p"}},
	{"1 John", []string{"1john", "1joh", "1jhn", "1jn", "1jo"}},
	{"2 John", []string{"2john", "2joh", "2jhn", "2jn", "2jo"}},
	{"3 John", []string{"3john", "3joh", "3jhn", "3jn", "3jo"}},
	{"Jude", []string{"jude", "jud", "jd"}},
	{"Revelation", []string{"revelation", "revelations", "rev", "re", "rv", "apocalypse", "apoc"}},
}

var abbreviations, ambiguousAbbreviations = buildAbbreviations(abbreviationList)

// buildAbbreviations flattens the declaration list into a lookup map and
// records every key that was declared for more than one book, in declaration order.
func buildAbbreviations(list []bookAbbreviations) (map[string]string, map[string][]string) {
	table := make(map[string]string)
	declared := make(map[string][]string)

	for _, entry := range list {
		for _, key := range entry.keys {
			key = NormalizeAbbreviation(key)
			table[key] = entry.book
			declared[key] = append(declared[key], entry.book)
		}
	}

	ambiguous := make(map[string][]string)
	for key, books := range declared {
		if len(books) > 1 {
			ambiguous[key] = books
		}
	}

	return table, ambiguous
}

// NormalizeAbbreviation lower-cases an abbreviation and removes all whitespace
func NormalizeAbbreviation(abbr string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, abbr)
}

// LookupAbbreviation resolves a book abbreviation to its canonical name
func LookupAbbreviation(abbr string) (string, bool) {
	book, ok := abbreviations[NormalizeAbbreviation(abbr)]
	return book, ok
}

// Abbreviations returns a copy of the abbreviation table
func Abbreviations() map[string]string {
	return maps.Clone(abbreviations)
}

// AmbiguousAbbreviations returns the keys declared for more than one book,
// each with the books in declaration order. The last book listed is the one
// LookupAbbreviation returns.
func AmbiguousAbbreviations() map[string][]string {
	out := make(map[string][]string, len(ambiguousAbbreviations))
	for key, books := range ambiguousAbbreviations {
		out[key] = append([]string(nil), books...)
	}
	return out
}
