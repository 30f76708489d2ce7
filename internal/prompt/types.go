// Package prompt renders student profiles and topic requests into the
// instruction strings sent to the generation model.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// NotProvided is substituted for optional profile fields left blank.
const NotProvided = "Not provided"

// ExperienceLevel is the self-reported experience of a student, one of the
// catalog's experience levels.
type ExperienceLevel string

// ProfileRequest is the student profile submitted to the syllabus flow.
type ProfileRequest struct {
	PriorKnowledge  string          `json:"previousKnowledge"`
	ExperienceLevel ExperienceLevel `json:"experience"`
	GradeOrClass    string          `json:"class"`
	TestScores      string          `json:"testScores,omitempty"`
	Grades          string          `json:"grades,omitempty"`
	Subjects        Subjects        `json:"subjects"`
	LearningGoals   string          `json:"learningGoals"`
}

// Normalize trims every field, drops blank subjects and fills optional
// fields with NotProvided.
func (p ProfileRequest) Normalize() ProfileRequest {
	out := ProfileRequest{
		PriorKnowledge: strings.TrimSpace(p.PriorKnowledge),
		GradeOrClass:   strings.TrimSpace(p.GradeOrClass),
		TestScores:     strings.TrimSpace(p.TestScores),
		Grades:         strings.TrimSpace(p.Grades),
		LearningGoals:  strings.TrimSpace(p.LearningGoals),
		Subjects:       make([]string, 0, len(p.Subjects)),
	}
	out.ExperienceLevel = ExperienceLevel(strings.TrimSpace(string(p.ExperienceLevel)))
	for _, s := range p.Subjects {
		if s = strings.TrimSpace(s); s != "" {
			out.Subjects = append(out.Subjects, s)
		}
	}
	if out.TestScores == "" {
		out.TestScores = NotProvided
	}
	if out.Grades == "" {
		out.Grades = NotProvided
	}
	return out
}

// Validate reports missing required fields and, when levels is non-empty,
// an experience level outside levels. It expects a normalized profile. On
// success the returned profile carries the canonical spelling of the level.
func (p ProfileRequest) Validate(levels []string) (ProfileRequest, error) {
	var missing []string
	if strings.TrimSpace(p.PriorKnowledge) == "" {
		missing = append(missing, "previousKnowledge")
	}
	if strings.TrimSpace(string(p.ExperienceLevel)) == "" {
		missing = append(missing, "experience")
	}
	if strings.TrimSpace(p.GradeOrClass) == "" {
		missing = append(missing, "class")
	}
	if !hasSubject(p.Subjects) {
		missing = append(missing, "subjects")
	}
	if strings.TrimSpace(p.LearningGoals) == "" {
		missing = append(missing, "learningGoals")
	}
	if len(missing) > 0 {
		return p, &ValidationError{Fields: missing, Reason: ReasonMissing}
	}
	level, ok := canonical(levels, string(p.ExperienceLevel))
	if !ok {
		return p, &ValidationError{Fields: []string{"experience"}, Reason: ReasonInvalid}
	}
	p.ExperienceLevel = ExperienceLevel(level)
	return p, nil
}

// TopicRequest is the lesson request submitted to the teacher flow.
type TopicRequest struct {
	Topic   string `json:"topic"`
	Level   string `json:"userLevel"`
	Context string `json:"context,omitempty"`
}

// Normalize trims every field.
func (r TopicRequest) Normalize() TopicRequest {
	return TopicRequest{
		Topic:   strings.TrimSpace(r.Topic),
		Level:   strings.TrimSpace(r.Level),
		Context: strings.TrimSpace(r.Context),
	}
}

// Validate checks the required fields and, when levels is non-empty, that
// the level is one of them. On success the returned request carries the
// canonical spelling of the level.
func (r TopicRequest) Validate(levels []string) (TopicRequest, error) {
	var missing []string
	if strings.TrimSpace(r.Topic) == "" {
		missing = append(missing, "topic")
	}
	if strings.TrimSpace(r.Level) == "" {
		missing = append(missing, "userLevel")
	}
	if len(missing) > 0 {
		return r, &ValidationError{Fields: missing, Reason: ReasonMissing}
	}
	level, ok := canonical(levels, r.Level)
	if !ok {
		return r, &ValidationError{Fields: []string{"userLevel"}, Reason: ReasonInvalid}
	}
	r.Level = level
	return r, nil
}

// canonical returns the entry of levels equal to s under case folding. An
// empty list accepts s as given.
func canonical(levels []string, s string) (string, bool) {
	if len(levels) == 0 {
		return strings.TrimSpace(s), true
	}
	for _, l := range levels {
		if foldEqual(l, s) {
			return l, true
		}
	}
	return "", false
}

// SplitSubjects turns a comma separated subject list into its trimmed,
// non-empty entries.
func SplitSubjects(s string) []string {
	subjects := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			subjects = append(subjects, part)
		}
	}
	return subjects
}

// Subjects is a subject list. In JSON it is either an array of strings or
// a single comma separated string.
type Subjects []string

func (s *Subjects) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return fmt.Errorf("subjects must be a string or an array of strings")
	}
	*s = SplitSubjects(one)
	return nil
}

// Reason classifies a ValidationError.
type Reason string

const (
	ReasonMissing Reason = "missing"
	ReasonInvalid Reason = "invalid"
)

// ValidationError is returned before any prompt is built.
type ValidationError struct {
	Fields []string
	Reason Reason
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonInvalid:
		return fmt.Sprintf("invalid value for fields: %s", strings.Join(e.Fields, ", "))
	default:
		return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
	}
}

func hasSubject(subjects []string) bool {
	for _, s := range subjects {
		if strings.TrimSpace(s) != "" {
			return true
		}
	}
	return false
}

// foldEqual reports whether a and b are equal under Unicode case folding
// after trimming. A Caser is stateful, so one is built per call.
func foldEqual(a, b string) bool {
	fold := cases.Fold()
	return fold.String(strings.TrimSpace(a)) == fold.String(strings.TrimSpace(b))
}
