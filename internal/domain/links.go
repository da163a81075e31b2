package domain

import "regexp"

// SegmentKind distinguishes plain text from a link in a split message.
type SegmentKind int

const (
	SegmentText SegmentKind = iota
	SegmentLink
)

// Segment is one piece of a message prepared for rendering.
type Segment struct {
	Kind  SegmentKind
	Text  string // SegmentText only
	Label string // SegmentLink only
	URI   string // SegmentLink only
}

// PlainText builds a text segment.
func PlainText(s string) Segment { return Segment{Kind: SegmentText, Text: s} }

// Link builds a link segment.
func Link(label, uri string) Segment { return Segment{Kind: SegmentLink, Label: label, URI: uri} }

// Labels never span brackets or lines; URIs are non-empty and stop at
// whitespace or parentheses. Anything else stays literal.
var linkPattern = regexp.MustCompile(`\[([^\[\]\n]*)\]\(([^()\s]+)\)`)

// SplitLinks splits text into plain and link segments in encounter order.
// Text without any marker yields a single PlainText equal to the input.
func SplitLinks(text string) []Segment {
	matches := linkPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return []Segment{PlainText(text)}
	}

	segments := make([]Segment, 0, 2*len(matches)+1)
	pos := 0
	for _, m := range matches {
		if m[0] > pos {
			segments = append(segments, PlainText(text[pos:m[0]]))
		}
		segments = append(segments, Link(text[m[2]:m[3]], text[m[4]:m[5]]))
		pos = m[1]
	}
	if pos < len(text) {
		segments = append(segments, PlainText(text[pos:]))
	}
	return segments
}
