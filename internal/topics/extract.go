// Package topics turns generated curriculum markdown into a short list of
// topic labels suitable for suggestion chips.
//
// Extraction is heuristic: the model is only asked, not forced, to follow a
// structure, so every rule tolerates deviation and Extract never fails.
package topics

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Policy configures one extraction behaviour. A line is a candidate when
// any Candidates pattern matches its trimmed form; Strip patterns are then
// removed in order to produce the label.
type Policy struct {
	Name string
	// MaxItems caps the result; zero means unlimited.
	MaxItems int
	// MinLen and MaxLen are exclusive rune-count bounds on a label. A zero
	// MaxLen disables the upper bound.
	MinLen int
	MaxLen int
	// RejectNumeric drops labels made only of digits.
	RejectNumeric bool
	Candidates    []*regexp.Regexp
	Strip         []*regexp.Regexp
	// Ignore holds whole labels, compared without case, that are
	// scaffolding rather than topics. IgnorePrefixes drops any label
	// starting with one of its entries, also compared without case.
	Ignore         []string
	IgnorePrefixes []string
}

var (
	numberedItem  = regexp.MustCompile(`^\d+\.\s`)
	bulletItem    = regexp.MustCompile(`^[-•]\s`)
	h2Header      = regexp.MustCompile(`^##\s`)
	h3Header      = regexp.MustCompile(`^###\s`)
	sectionPrefix = regexp.MustCompile(`(?i)^(module|chapter|unit)\s+\d+`)

	stripNumber  = regexp.MustCompile(`^\d+\.\s*`)
	stripBullet  = regexp.MustCompile(`^[-•]\s*`)
	stripHashes  = regexp.MustCompile(`^#+\s*`)
	stripSection = regexp.MustCompile(`(?i)^(module|chapter|unit|part|topic|lesson)\s+\d+(\.\d+)*\s*[:\-–]?\s*`)

	anyBullet    = regexp.MustCompile(`•`)
	anyDash      = regexp.MustCompile(`-`)
	anyFirst     = regexp.MustCompile(`1\.`)
	anySecond    = regexp.MustCompile(`2\.`)
	leadingMarks = regexp.MustCompile(`^[•\-\d.\s]+`)

	digitsOnly = regexp.MustCompile(`^\d+$`)
)

// CurriculumPolicy is the strict policy applied to generated curricula:
// numbered items, bullets, level 2/3 headers and "Module|Chapter|Unit N"
// lines, at most 15 labels of 4 to 99 runes.
func CurriculumPolicy() Policy {
	return Policy{
		Name:           "curriculum",
		MaxItems:       15,
		MinLen:         3,
		MaxLen:         100,
		RejectNumeric:  true,
		Candidates:     []*regexp.Regexp{numberedItem, bulletItem, h2Header, h3Header, sectionPrefix},
		Strip:          []*regexp.Regexp{stripNumber, stripBullet, stripHashes, stripSection},
		Ignore:         []string{"key concepts"},
		IgnorePrefixes: []string{"estimated time:"},
	}
}

// TeachingPolicy is the loose policy used to suggest lesson topics from a
// curriculum: any line containing a bullet, a dash, "1." or "2." qualifies
// and only leading markers are stripped. At most 10 labels.
func TeachingPolicy() Policy {
	return Policy{
		Name:       "teaching",
		MaxItems:   10,
		MinLen:     0,
		MaxLen:     100,
		Candidates: []*regexp.Regexp{anyBullet, anyDash, anyFirst, anySecond},
		Strip:      []*regexp.Regexp{leadingMarks},
	}
}

// Extract returns the distinct labels found in text, in first-seen order.
// The result is never nil.
func Extract(text string, p Policy) []string {
	out := []string{}
	if text == "" {
		return out
	}

	seen := make(map[string]struct{})
	for _, line := range strings.Split(text, "\n") {
		if p.MaxItems > 0 && len(out) >= p.MaxItems {
			break
		}
		line = strings.TrimSpace(line)
		if !p.isCandidate(line) {
			continue
		}
		label := p.clean(line)
		if !p.accept(label) {
			continue
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return out
}

func (p Policy) isCandidate(line string) bool {
	for _, re := range p.Candidates {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

func (p Policy) clean(line string) string {
	for _, re := range p.Strip {
		line = re.ReplaceAllString(line, "")
	}
	return strings.TrimSpace(line)
}

func (p Policy) accept(label string) bool {
	n := utf8.RuneCountInString(label)
	if n <= p.MinLen {
		return false
	}
	if p.MaxLen > 0 && n >= p.MaxLen {
		return false
	}
	if p.RejectNumeric && digitsOnly.MatchString(label) {
		return false
	}
	for _, ignored := range p.Ignore {
		if strings.EqualFold(label, ignored) {
			return false
		}
	}
	lower := strings.ToLower(label)
	for _, prefix := range p.IgnorePrefixes {
		if strings.HasPrefix(lower, strings.ToLower(prefix)) {
			return false
		}
	}
	return true
}
