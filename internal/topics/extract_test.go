package topics

import (
	"fmt"
	"strings"
	"testing"
)

func TestExtract_Curriculum_EndToEnd(t *testing.T) {
	text := "## Module 1: Algebra Basics\n### Topic 1.1: Variables\n- Key concepts\n## Module 2: Geometry"

	got := Extract(text, CurriculumPolicy())
	want := []string{"Algebra Basics", "Variables", "Geometry"}

	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Extract() = %q, want %q", got, want)
	}
}

func TestExtract_Curriculum_ScaffoldWordsInTitles(t *testing.T) {
	text := "## Module 1: Calculus\n### Topic 1.1: Key Concepts of Derivatives\n### Topic 1.2: Estimated Time Complexity\n- Key concepts\n- Estimated time: 2 hours"

	got := Extract(text, CurriculumPolicy())
	want := []string{"Calculus", "Key Concepts of Derivatives", "Estimated Time Complexity"}

	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Extract() = %q, want %q", got, want)
	}
}

func TestExtract_Curriculum_Lines(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string // empty means rejected
	}{
		{"numbered", "1. Linear Equations", "Linear Equations"},
		{"numbered indented", "   12. Quadratic Functions  ", "Quadratic Functions"},
		{"dash bullet", "- Probability Theory", "Probability Theory"},
		{"dot bullet", "• Cell Biology", "Cell Biology"},
		{"h2", "## Learning Objectives", "Learning Objectives"},
		{"h3 module", "### Module 2: Photosynthesis", "Photosynthesis"},
		{"bare module line", "Module 3 - Thermodynamics", "Thermodynamics"},
		{"chapter case-insensitive", "CHAPTER 4: Optics", "Optics"},
		{"unit no separator", "unit 7 Statistics", "Statistics"},
		{"h1 is not a candidate", "# Curriculum Overview", ""},
		{"plain prose", "This curriculum is tailored to you.", ""},
		{"bullet without space", "-Dense", ""},
		{"length 3 rejected", "1. abc", ""},
		{"length 4 accepted", "1. abcd", "abcd"},
		{"digits only rejected", "- 12345", ""},
		{"module number only", "## Module 5", ""},
		{"scaffold estimated time", "- Estimated time: 3 hours", ""},
		{"scaffold key concepts", "- KEY CONCEPTS", ""},
		{"key concepts inside a title", "### Topic 1.1: Key Concepts of Derivatives", "Key Concepts of Derivatives"},
		{"estimated time without colon", "### Topic 1.2: Estimated Time Complexity", "Estimated Time Complexity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.line, CurriculumPolicy())
			if tt.want == "" {
				if len(got) != 0 {
					t.Errorf("Extract(%q) = %q, want none", tt.line, got)
				}
				return
			}
			if len(got) != 1 || got[0] != tt.want {
				t.Errorf("Extract(%q) = %q, want [%q]", tt.line, got, tt.want)
			}
		})
	}
}

func TestExtract_Curriculum_UpperBound(t *testing.T) {
	label99 := strings.Repeat("a", 99)
	label100 := strings.Repeat("b", 100)

	got := Extract("- "+label99+"\n- "+label100, CurriculumPolicy())

	if len(got) != 1 || got[0] != label99 {
		t.Errorf("Extract() kept %d labels, want only the 99 rune label", len(got))
	}
}

func TestExtract_CountsRunes(t *testing.T) {
	// Four runes, twelve bytes.
	got := Extract("- 日本語史", CurriculumPolicy())
	if len(got) != 1 {
		t.Errorf("Extract() = %q, want the four rune label kept", got)
	}
}

func TestExtract_Curriculum_DedupAndLimit(t *testing.T) {
	var b strings.Builder
	for i := 1; i <= 30; i++ {
		fmt.Fprintf(&b, "%d. Topic number %d\n", i, i)
		fmt.Fprintf(&b, "- Topic number %d\n", i) // duplicate label
	}

	got := Extract(b.String(), CurriculumPolicy())

	if len(got) != 15 {
		t.Fatalf("len = %d, want 15", len(got))
	}
	if got[0] != "Topic number 1" || got[14] != "Topic number 15" {
		t.Errorf("order not preserved: first=%q last=%q", got[0], got[14])
	}
	assertDistinct(t, got)
}

func TestExtract_Empty(t *testing.T) {
	for _, p := range []Policy{CurriculumPolicy(), TeachingPolicy()} {
		got := Extract("", p)
		if got == nil || len(got) != 0 {
			t.Errorf("%s: Extract(\"\") = %#v, want empty non-nil slice", p.Name, got)
		}
	}
}

func TestExtract_NoCandidates(t *testing.T) {
	got := Extract("Just a paragraph.\nAnd another one.", CurriculumPolicy())
	if len(got) != 0 {
		t.Errorf("Extract() = %q, want none", got)
	}
}

func TestExtract_Teaching(t *testing.T) {
	text := strings.Join([]string{
		"## Learning Objectives",
		"• Understand variables",
		"1. Solving equations",
		"Self-paced review", // dash inside the line still qualifies
		"Topic 2.1 outline",
		"- ",
		"• Understand variables",
		"No markers here",
	}, "\n")

	got := Extract(text, TeachingPolicy())
	want := []string{"Understand variables", "Solving equations", "Self-paced review", "Topic 2.1 outline"}

	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Extract() = %q, want %q", got, want)
	}
}

func TestExtract_Teaching_Limit(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 25; i++ {
		fmt.Fprintf(&b, "- Lesson idea %c\n", 'A'+i)
	}

	got := Extract(b.String(), TeachingPolicy())
	if len(got) != 10 {
		t.Errorf("len = %d, want 10", len(got))
	}
	assertDistinct(t, got)
}

func TestExtract_Teaching_KeepsShortLabels(t *testing.T) {
	got := Extract("- Go", TeachingPolicy())
	if len(got) != 1 || got[0] != "Go" {
		t.Errorf("Extract() = %q, want [Go]", got)
	}
}

func TestPolicySpec_RoundTrip(t *testing.T) {
	for _, p := range []Policy{CurriculumPolicy(), TeachingPolicy()} {
		compiled, err := p.Spec().Compile(p.Name)
		if err != nil {
			t.Fatalf("%s: Compile() error = %v", p.Name, err)
		}

		text := "## Module 1: Algebra Basics\n### Topic 1.1: Variables\n- Key concepts\n- Estimated time: 1 hour\n1. Linear Equations\n• Ratios - part two"
		if a, b := Extract(text, p), Extract(text, compiled); strings.Join(a, "|") != strings.Join(b, "|") {
			t.Errorf("%s: compiled policy extracted %q, built-in %q", p.Name, b, a)
		}
	}
}

func TestPolicySpec_CompileErrors(t *testing.T) {
	tests := []struct {
		name string
		spec PolicySpec
	}{
		{"no candidates", PolicySpec{MaxItems: 5}},
		{"bad regexp", PolicySpec{Candidates: []string{"("}}},
		{"bad strip", PolicySpec{Candidates: []string{"^-"}, Strip: []string{"[z-a]"}}},
		{"negative", PolicySpec{Candidates: []string{"^-"}, MaxItems: -1}},
		{"empty window", PolicySpec{Candidates: []string{"^-"}, MinLen: 3, MaxLen: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.spec.Compile(tt.name); err == nil {
				t.Error("Compile() should fail")
			}
		})
	}
}

func assertDistinct(t *testing.T, labels []string) {
	t.Helper()
	seen := map[string]bool{}
	for _, l := range labels {
		if seen[l] {
			t.Errorf("duplicate label %q", l)
		}
		seen[l] = true
	}
}
