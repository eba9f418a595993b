// Package bible holds the static lookup tables the commentary pipeline reads:
// the two-digit book directory used in commentary filenames and the
// abbreviation table used to resolve passage tokens.
//
// Both tables are built once at package initialisation and are never mutated
// afterwards; the accessors hand out copies.
package bible

import "maps"

const (
	// UnknownBook is the name reported for a book code missing from the directory
	UnknownBook = "Unknown"
	// DefaultBookCode is used when a filename carries no book code
	DefaultBookCode = "00"
)

// bookDirectory maps the two-digit commentary book code to its canonical name.
// Code "00" is the non-canonical Preface.
var bookDirectory = map[string]string{
	"00": "Preface",
	"01": "Genesis", "02": "Exodus", "03": "Leviticus", "04": "Numbers", "05": "Deuteronomy",
	"06": "Joshua", "07": "Judges", "08": "Ruth", "09": "1 Samuel", "10": "2 Samuel",
	"11": "1 Kings", "12": "2 Kings", "13": "1 Chronicles", "14": "2 Chronicles",
	"15": "Ezra", "16": "Nehemiah", "17": "Esther", "18": "Job", "19": "Psalms",
	"20": "Proverbs", "21": "Ecclesiastes", "22": "Song of Solomon", "23": "Isaiah",
	"24": "Jeremiah", "25": "Lamentations", "26": "Ezekiel", "27": "Daniel",
	"28": "Hosea", "29": "Joel", "30": "Amos", "31": "Obadiah", "32": "Jonah",
	"33": "Micah", "34": "Nahum", "35": "Habakkuk", "36": "Zephaniah", "37": "Haggai",
	"38": "Zechariah", "39": "Malachi",
	"40": "Matthew", "41": "Mark", "42": "Luke", "43": "John", "44": "Acts",
	"45": "Romans", "46": "1 Corinthians", "47": "2 Corinthians", "48": "Galatians",
	"49": "Ephesians", "50": "Philippians", "51": "Colossians", "52": "1 Thessalonians",
	"53": "2 Thessalonians", "54": "1 Timothy", "55": "2 Timothy", "56": "Titus",
	"57": "Philemon", "58": "Hebrews", "59": "James", "60": "1 Peter", "61": "2 Peter",
	"62": "1 John", "63": "2 John", "64": "3 John", "65": "Jude", "66": "Revelation",
}

// Books returns a copy of the book directory
func Books() map[string]string {
	return maps.Clone(bookDirectory)
}

// BookName returns the canonical name for a book code, or UnknownBook
func BookName(code string) string {
	if name, ok := bookDirectory[code]; ok {
		return name
	}
	return UnknownBook
}

// IsBookName reports whether name is one of the directory's canonical names
func IsBookName(name string) bool {
	for _, n := range bookDirectory {
		if n == name {
			return true
		}
	}
	return false
}
