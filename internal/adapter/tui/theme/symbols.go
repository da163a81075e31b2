package theme

import (
	"os"
	"strings"
)

// SymbolSet is one complete set of glyphs and speaker labels.
type SymbolSet struct {
	Error    string
	Info     string
	ArrowR   string
	Bullet   string
	Ellipsis string
	Link     string
	User     string
	Bot      string
}

var unicodeSymbols = SymbolSet{
	Error:    "✗",
	Info:     "●",
	ArrowR:   "→",
	Bullet:   "•",
	Ellipsis: "…",
	Link:     "↗",
	User:     "Vous",
	Bot:      "Assistant",
}

var asciiSymbols = SymbolSet{
	Error:    "[ERR]",
	Info:     "*",
	ArrowR:   "->",
	Bullet:   "-",
	Ellipsis: "...",
	Link:     "[map]",
	User:     "Vous",
	Bot:      "Assistant",
}

// DetectUnicodeSupport reports whether glyphs are likely to render.
// FOLIO_ASCII_SYMBOLS forces ASCII. The Linux console and the C/POSIX
// locales get ASCII; anything else is assumed to be a UTF-8 terminal.
func DetectUnicodeSupport() bool {
	if v := os.Getenv("FOLIO_ASCII_SYMBOLS"); v == "1" || strings.EqualFold(v, "true") {
		return false
	}
	if os.Getenv("TERM") == "linux" {
		return false
	}
	for _, key := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		val := os.Getenv(key)
		if val == "" {
			continue
		}
		// The first locale variable set wins.
		return val != "C" && val != "POSIX"
	}
	return true
}

// InitSymbols picks the symbol set for the current environment.
func InitSymbols() {
	if DetectUnicodeSupport() {
		applySymbols(unicodeSymbols)
	} else {
		applySymbols(asciiSymbols)
	}
}

// ForceASCII switches to the ASCII set regardless of the environment.
func ForceASCII() {
	applySymbols(asciiSymbols)
}

func applySymbols(set SymbolSet) {
	SymbolError = set.Error
	SymbolInfo = set.Info
	SymbolArrowR = set.ArrowR
	SymbolBullet = set.Bullet
	SymbolEllipsis = set.Ellipsis
	SymbolLink = set.Link
	SymbolUser = set.User
	SymbolBot = set.Bot
}

func init() {
	InitSymbols()
}
