// Package reflow inserts blank lines around structural markdown lines so
// headers and lists render with consistent spacing.
//
// Format only ever adds blank lines. Blank lines that already follow a
// structural line count towards the spacing it needs, so running Format on
// its own output is a no-op.
package reflow

import (
	"regexp"
	"strings"
)

// Variant selects which level 2 headers count as major sections.
type Variant int

const (
	Curriculum Variant = iota
	Teaching
)

func (v Variant) String() string {
	switch v {
	case Curriculum:
		return "curriculum"
	case Teaching:
		return "teaching"
	default:
		return "unknown"
	}
}

// ParseVariant maps a variant name to its value. The empty string selects
// Curriculum.
func ParseVariant(s string) (Variant, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "curriculum":
		return Curriculum, true
	case "teaching":
		return Teaching, true
	default:
		return 0, false
	}
}

const (
	majorSpacing = 2
	minorSpacing = 1
)

// TeachingSections are the level 2 section titles the lesson prompt asks
// for.
var TeachingSections = []string{
	"What is",
	"Key Concepts",
	"Real-World Examples",
	"Step-by-Step Process",
	"Code Examples",
	"Practice Questions",
	"Common Mistakes to Avoid",
	"Tips for Success",
}

var (
	curriculumMajor = regexp.MustCompile(`(?i)^##\s+(module|chapter|unit|part)\b`)
	teachingMajor   = sectionPattern(TeachingSections)
	minorHeader     = regexp.MustCompile(`^(###\s|\d+\.\s|[-*•]\s)`)
	fence           = regexp.MustCompile("^(`{3,}|~{3,})")
)

// Formatter reflows text for one variant.
type Formatter struct {
	major *regexp.Regexp
}

// New returns a formatter for v.
func New(v Variant) *Formatter {
	if v == Teaching {
		return &Formatter{major: teachingMajor}
	}
	return &Formatter{major: curriculumMajor}
}

// NewWithSections returns a teaching formatter whose major headers are the
// given section titles. An empty list falls back to TeachingSections.
func NewWithSections(sections []string) *Formatter {
	if len(sections) == 0 {
		return New(Teaching)
	}
	return &Formatter{major: sectionPattern(sections)}
}

// Format is shorthand for New(v).Format(text).
func Format(text string, v Variant) string {
	return New(v).Format(text)
}

// Format copies text line by line. Major headers are followed by two blank
// lines; level 3 headers, numbered items and bullets by one. Lines inside
// fenced code blocks are copied untouched.
func (f *Formatter) Format(text string) string {
	if text == "" {
		return ""
	}

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines)+len(lines)/2)
	// open holds the marker of the enclosing code fence, if any.
	open := ""

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		out = append(out, line)

		trimmed := strings.TrimSpace(line)
		if open != "" {
			if closesFence(trimmed, open) {
				open = ""
			}
			continue
		}
		if m := fence.FindString(trimmed); m != "" {
			open = m
			continue
		}

		want := f.spacing(trimmed)
		if want == 0 {
			continue
		}

		// Absorb the blank lines already present.
		have := 0
		for i+1 < len(lines) && strings.TrimSpace(lines[i+1]) == "" {
			i++
			have++
			out = append(out, lines[i])
		}
		for ; have < want; have++ {
			out = append(out, "")
		}
	}

	return strings.Join(out, "\n")
}

// closesFence reports whether line ends the block opened by marker: a run
// of the same character at least as long, with nothing after it.
func closesFence(line, marker string) bool {
	m := fence.FindString(line)
	return m != "" && m[0] == marker[0] && len(m) >= len(marker) && strings.TrimSpace(line[len(m):]) == ""
}

func (f *Formatter) spacing(trimmed string) int {
	switch {
	case f.major.MatchString(trimmed):
		return majorSpacing
	case minorHeader.MatchString(trimmed):
		return minorSpacing
	default:
		return 0
	}
}

func sectionPattern(sections []string) *regexp.Regexp {
	quoted := make([]string, len(sections))
	for i, s := range sections {
		quoted[i] = regexp.QuoteMeta(s)
	}
	return regexp.MustCompile(`(?i)^##\s+(` + strings.Join(quoted, "|") + `)`)
}
