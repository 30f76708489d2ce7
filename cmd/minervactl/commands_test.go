package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/minerva/internal/export"
	"github.com/p-n-ai/minerva/internal/tutor"
)

const sampleCurriculum = `## Module 1: Algebra Basics
### Topic 1.1: Variables
- Key concepts
## Module 2: Geometry`

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("MINERVA_CATALOG_PATH", "")
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTopicsCmd(t *testing.T) {
	tests := []struct {
		name string
		args []string
		in   string
		want string
	}{
		{"curriculum from stdin", []string{"topics"}, sampleCurriculum, "Algebra Basics\nVariables\nGeometry\n"},
		{"teaching policy", []string{"topics", "--policy", "teaching"}, "• Loops\nplain\n- Maps", "Loops\nMaps\n"},
		{"empty input", []string{"topics"}, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := execute(t, tt.in, tt.args...)
			if err != nil {
				t.Fatalf("execute() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTopicsCmd_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curriculum.md")
	if err := os.WriteFile(path, []byte(sampleCurriculum), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := execute(t, "", "topics", path)
	if err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	if !strings.HasPrefix(got, "Algebra Basics\n") {
		t.Errorf("output = %q", got)
	}
}

func TestTopicsCmd_UnknownPolicy(t *testing.T) {
	if _, err := execute(t, "x", "topics", "--policy", "fancy"); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestReflowCmd(t *testing.T) {
	got, err := execute(t, "## Module 1: X\nSome text", "reflow")
	if err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	if got != "## Module 1: X\n\n\nSome text" {
		t.Errorf("output = %q", got)
	}

	got, err = execute(t, "## Tips for Success\nPractice", "reflow", "--variant", "teaching")
	if err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	if got != "## Tips for Success\n\n\nPractice" {
		t.Errorf("teaching output = %q", got)
	}

	if _, err := execute(t, "x", "reflow", "--variant", "haiku"); err == nil {
		t.Error("expected error for unknown variant")
	}
}

func TestPromptCmd(t *testing.T) {
	got, err := execute(t, "", "prompt", "curriculum",
		"--knowledge", "Fractions",
		"--experience", "intermediate",
		"--class", "Grade 6",
		"--subjects", "Math, Science",
		"--goals", "Prepare for exams",
	)
	if err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	for _, want := range []string{"Intermediate level student in Grade 6", "Subjects: Math, Science", "Test Scores: Not provided"} {
		if !strings.Contains(got, want) {
			t.Errorf("curriculum prompt missing %q", want)
		}
	}

	got, err = execute(t, "", "prompt", "teach", "--topic", "Loops", "--level", "high school (grades 9-12)")
	if err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	if !strings.HasPrefix(got, `Teach "Loops" to a High School (Grades 9-12) student.`) {
		t.Errorf("teach prompt = %q", got)
	}
}

func TestPromptCmd_Validation(t *testing.T) {
	if _, err := execute(t, "", "prompt", "curriculum", "--knowledge", "x"); err == nil {
		t.Error("expected missing-field error")
	}
	if _, err := execute(t, "", "prompt", "teach", "--topic", "Loops", "--level", "Toddler"); err == nil {
		t.Error("expected unknown-level error")
	}
}

func TestPromptCmd_CatalogExperienceLevels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte("experience_levels: [Novice, Expert]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	args := []string{"prompt", "curriculum", "--catalog", path,
		"--knowledge", "Fractions", "--class", "Grade 6", "--subjects", "Math", "--goals", "Exams"}

	got, err := execute(t, "", append(args, "--experience", "expert")...)
	if err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	if !strings.Contains(got, "Expert level student") {
		t.Errorf("curriculum prompt = %q", got)
	}
	if _, err := execute(t, "", append(args, "--experience", "Beginner")...); err == nil {
		t.Error("a level missing from the catalog should be rejected")
	}
}

func TestExportCmd(t *testing.T) {
	out := filepath.Join(t.TempDir(), "topics.xlsx")
	got, err := execute(t, sampleCurriculum, "export", "--out", out, "--title", "Algebra")
	if err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	if !strings.Contains(got, "Wrote 3 topics") {
		t.Errorf("output = %q", got)
	}

	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(export.SheetName)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Errorf("rows = %v", rows)
	}
}

func TestStatsCmd_NoDatabase(t *testing.T) {
	t.Setenv("MINERVA_DATABASE_URL", "")
	_, err := execute(t, "", "stats")
	if err == nil || !strings.Contains(err.Error(), "no database configured") {
		t.Errorf("error = %v", err)
	}
}

func TestWriteStats(t *testing.T) {
	var buf bytes.Buffer
	writeStats(&buf, time.Hour, nil)
	if !strings.Contains(buf.String(), "No generations in the last 1h0m0s") {
		t.Errorf("empty output = %q", buf.String())
	}

	buf.Reset()
	writeStats(&buf, time.Hour, []tutor.FlowStats{
		{Flow: tutor.FlowCurriculum, Total: 4, Failed: 1, AvgMillis: 2350},
	})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[2], "curriculum") || !strings.Contains(lines[2], "2350") {
		t.Errorf("output = %q", buf.String())
	}
}
