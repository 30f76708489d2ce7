// Package tutor runs the syllabus and teacher flows: validate the request,
// build the prompt, make one generation call, then extract topics and
// reflow the markdown.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/minerva/internal/ai"
	"github.com/p-n-ai/minerva/internal/catalog"
	"github.com/p-n-ai/minerva/internal/platform/metrics"
	"github.com/p-n-ai/minerva/internal/prompt"
	"github.com/p-n-ai/minerva/internal/reflow"
	"github.com/p-n-ai/minerva/internal/topics"
)

// Flow names a generation flow.
type Flow string

const (
	FlowCurriculum Flow = "curriculum"
	FlowTeaching   Flow = "teaching"
	FlowProbe      Flow = "probe"
)

func (f Flow) task() ai.TaskType {
	switch f {
	case FlowCurriculum:
		return ai.TaskCurriculum
	case FlowProbe:
		return ai.TaskProbe
	default:
		return ai.TaskTeaching
	}
}

// failureMessage is shown when a provider fails without a message.
func (f Flow) failureMessage() string {
	switch f {
	case FlowCurriculum:
		return "Failed to generate curriculum"
	case FlowTeaching:
		return "Failed to generate teaching content"
	default:
		return "Generation failed"
	}
}

const defaultBudgetScope = "global"

// Config holds dependencies for the service.
type Config struct {
	Generator       ai.Provider
	Catalog         *catalog.Catalog // default catalog when nil
	Budget          ai.BudgetChecker // optional
	BudgetScope     string           // default "global"
	Events          EventLogger      // default NopEventLogger
	Metrics         *metrics.Metrics // optional
	MaxOutputTokens int
}

// Service orchestrates both flows.
type Service struct {
	gen             ai.Provider
	catalog         *catalog.Catalog
	budget          ai.BudgetChecker
	scope           string
	events          EventLogger
	metrics         *metrics.Metrics
	maxOutputTokens int

	curriculumPolicy topics.Policy
	teachingPolicy   topics.Policy
	curriculumFmt    *reflow.Formatter
	teachingFmt      *reflow.Formatter
}

// NewService creates a service.
func NewService(cfg Config) *Service {
	cat := cfg.Catalog
	if cat == nil {
		cat = catalog.Default()
	}
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	scope := cfg.BudgetScope
	if scope == "" {
		scope = defaultBudgetScope
	}

	curriculum, ok := cat.Policy(catalog.PolicyCurriculum)
	if !ok {
		curriculum = topics.CurriculumPolicy()
	}
	teaching, ok := cat.Policy(catalog.PolicyTeaching)
	if !ok {
		teaching = topics.TeachingPolicy()
	}

	return &Service{
		gen:              cfg.Generator,
		catalog:          cat,
		budget:           cfg.Budget,
		scope:            scope,
		events:           events,
		metrics:          cfg.Metrics,
		maxOutputTokens:  cfg.MaxOutputTokens,
		curriculumPolicy: curriculum,
		teachingPolicy:   teaching,
		curriculumFmt:    reflow.New(reflow.Curriculum),
		teachingFmt:      reflow.NewWithSections(cat.TeachingSections()),
	}
}

// Catalog returns the catalog the service validates against.
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// CurriculumResult is the outcome of the syllabus flow.
type CurriculumResult struct {
	Curriculum string   `json:"curriculum"`
	Formatted  string   `json:"formatted"`
	Topics     []string `json:"topics"`
	// Suggestions are lesson topics picked with the loose teaching policy.
	Suggestions []string `json:"suggestions"`
	Model       string   `json:"model,omitempty"`
}

// LessonResult is the outcome of the teacher flow.
type LessonResult struct {
	Content   string `json:"content"`
	Formatted string `json:"formatted"`
	Model     string `json:"model,omitempty"`
}

// GenerationResult is what one generation call produced. ErrorMessage is
// set only when OK is false.
type GenerationResult struct {
	Text         string
	OK           bool
	ErrorMessage string

	err          error
	model        string
	provider     string
	inputTokens  int
	outputTokens int
}

// GenerateCurriculum turns a student profile into a curriculum.
func (s *Service) GenerateCurriculum(ctx context.Context, profile prompt.ProfileRequest) (CurriculumResult, error) {
	profile, err := profile.Normalize().Validate(s.catalog.ExperienceLevels())
	if err != nil {
		s.metrics.ObserveGeneration(string(FlowCurriculum), metrics.OutcomeInvalid, 0)
		return CurriculumResult{}, err
	}

	text := prompt.BuildCurriculumPrompt(profile)
	res, err := s.run(ctx, FlowCurriculum, text, func(res GenerationResult) int {
		return len(topics.Extract(res.Text, s.curriculumPolicy))
	})
	if err != nil {
		return CurriculumResult{}, err
	}

	list := topics.Extract(res.Text, s.curriculumPolicy)
	s.metrics.ObserveTopics(s.curriculumPolicy.Name, len(list))

	slog.Info("curriculum generated",
		"request_id", RequestID(ctx),
		"provider", res.provider,
		"topics", len(list),
	)
	return CurriculumResult{
		Curriculum:  res.Text,
		Formatted:   s.curriculumFmt.Format(res.Text),
		Topics:      list,
		Suggestions: s.SuggestTopics(res.Text),
		Model:       res.model,
	}, nil
}

// Teach turns a topic request into lesson content.
func (s *Service) Teach(ctx context.Context, req prompt.TopicRequest) (LessonResult, error) {
	req, err := s.validateTopic(req)
	if err != nil {
		return LessonResult{}, err
	}

	text := prompt.BuildTeachingPrompt(req.Topic, req.Level, req.Context)
	res, err := s.run(ctx, FlowTeaching, text, nil)
	if err != nil {
		return LessonResult{}, err
	}

	slog.Info("lesson generated",
		"request_id", RequestID(ctx),
		"provider", res.provider,
		"level", req.Level,
	)
	return LessonResult{
		Content:   res.Text,
		Formatted: s.teachingFmt.Format(res.Text),
		Model:     res.model,
	}, nil
}

// SuggestTopics extracts lesson suggestions from a curriculum with the
// loose teaching policy.
func (s *Service) SuggestTopics(curriculum string) []string {
	list := topics.Extract(curriculum, s.teachingPolicy)
	s.metrics.ObserveTopics(s.teachingPolicy.Name, len(list))
	return list
}

// ExtractTopics applies the named policy. ok is false for an unknown
// policy.
func (s *Service) ExtractTopics(text, policy string) ([]string, bool) {
	if policy == "" {
		policy = catalog.PolicyCurriculum
	}
	p, ok := s.catalog.Policy(policy)
	if !ok {
		return nil, false
	}
	list := topics.Extract(text, p)
	s.metrics.ObserveTopics(p.Name, len(list))
	return list, true
}

// Reflow formats text with the variant's formatter.
func (s *Service) Reflow(text string, v reflow.Variant) string {
	if v == reflow.Teaching {
		return s.teachingFmt.Format(text)
	}
	return s.curriculumFmt.Format(text)
}

// StreamLesson streams lesson content. The returned channel is closed after
// a Done chunk or an Error chunk; cancelling ctx stops the upstream call.
func (s *Service) StreamLesson(ctx context.Context, req prompt.TopicRequest) (<-chan ai.StreamChunk, error) {
	req, err := s.validateTopic(req)
	if err != nil {
		return nil, err
	}
	if err := s.checkBudget(ctx, FlowTeaching); err != nil {
		return nil, err
	}

	text := prompt.BuildTeachingPrompt(req.Topic, req.Level, req.Context)
	start := time.Now()
	upstream, err := s.gen.StreamComplete(ctx, s.request(FlowTeaching, text))
	if err != nil {
		res := failed(FlowTeaching, err)
		s.finish(ctx, FlowTeaching, text, res, start, 0)
		return nil, res.asError(FlowTeaching)
	}

	out := make(chan ai.StreamChunk)
	go func() {
		defer close(out)
		var b strings.Builder
		for chunk := range upstream {
			if chunk.Error != nil {
				res := failed(FlowTeaching, chunk.Error)
				s.finish(ctx, FlowTeaching, text, res, start, 0)
				chunk.Error = res.asError(FlowTeaching)
				sendChunk(ctx, out, chunk)
				return
			}
			b.WriteString(chunk.Content)
			if !sendChunk(ctx, out, chunk) {
				break
			}
		}
		if err := ctx.Err(); err != nil {
			slog.Info("lesson stream cancelled", "request_id", RequestID(ctx), "error", err)
			s.finish(ctx, FlowTeaching, text, failed(FlowTeaching, err), start, 0)
			return
		}
		// Streams carry no usage, so output tokens are estimated.
		res := GenerationResult{Text: b.String(), OK: true, outputTokens: b.Len() / 4}
		s.finish(ctx, FlowTeaching, text, res, start, 0)
	}()
	return out, nil
}

// Probe asks the model for a fixed reply and checks it came back.
func (s *Service) Probe(ctx context.Context) error {
	res := s.generate(ctx, FlowProbe, prompt.ProbePrompt)
	if !res.OK {
		return res.asError(FlowProbe)
	}
	if !strings.Contains(res.Text, prompt.ProbeReply) {
		return fmt.Errorf("probe reply %q does not contain %q", truncate(res.Text, 80), prompt.ProbeReply)
	}
	return nil
}

func (s *Service) validateTopic(req prompt.TopicRequest) (prompt.TopicRequest, error) {
	req, err := req.Normalize().Validate(s.catalog.TeachingLevels())
	if err != nil {
		s.metrics.ObserveGeneration(string(FlowTeaching), metrics.OutcomeInvalid, 0)
		return req, err
	}
	return req, nil
}

// run is the shared budget, generate and record sequence. topicCount, when
// set, reports how many topics to store on the event.
func (s *Service) run(ctx context.Context, flow Flow, text string, topicCount func(GenerationResult) int) (GenerationResult, error) {
	if err := s.checkBudget(ctx, flow); err != nil {
		return GenerationResult{}, err
	}

	start := time.Now()
	res := s.generate(ctx, flow, text)
	n := 0
	if res.OK && topicCount != nil {
		n = topicCount(res)
	}
	s.finish(ctx, flow, text, res, start, n)

	if !res.OK {
		return res, res.asError(flow)
	}
	return res, nil
}

// generate makes exactly one call to the generator and is the only place a
// failed GenerationResult is built.
func (s *Service) generate(ctx context.Context, flow Flow, text string) GenerationResult {
	resp, err := s.gen.Complete(ctx, s.request(flow, text))
	if err != nil {
		slog.Error("generation failed",
			"request_id", RequestID(ctx),
			"flow", string(flow),
			"error", err,
		)
		return failed(flow, err)
	}
	return GenerationResult{
		Text:         resp.Content,
		OK:           true,
		model:        resp.Model,
		provider:     resp.Provider,
		inputTokens:  resp.InputTokens,
		outputTokens: resp.OutputTokens,
	}
}

func (s *Service) request(flow Flow, text string) ai.CompletionRequest {
	req := ai.UserPrompt(flow.task(), text)
	req.MaxTokens = s.maxOutputTokens
	return req
}

func failed(flow Flow, err error) GenerationResult {
	msg := err.Error()
	if msg == "" {
		msg = flow.failureMessage()
	}
	return GenerationResult{OK: false, ErrorMessage: msg, err: err}
}

func (r GenerationResult) asError(flow Flow) error {
	msg := r.ErrorMessage
	if msg == "" {
		msg = flow.failureMessage()
	}
	return &GenerationError{Flow: flow, Message: msg, Err: r.err}
}

// checkBudget fails open when the budget store itself is unreachable.
func (s *Service) checkBudget(ctx context.Context, flow Flow) error {
	if s.budget == nil {
		return nil
	}
	ok, err := s.budget.Check(ctx, s.scope)
	if err != nil {
		slog.Warn("budget check failed, allowing request", "scope", s.scope, "error", err)
		return nil
	}
	if !ok {
		s.metrics.ObserveGeneration(string(flow), metrics.OutcomeBudget, 0)
		slog.Warn("token budget exhausted", "scope", s.scope, "flow", string(flow))
		return ErrBudgetExhausted
	}
	return nil
}

// finish records tokens, metrics and the generation event.
func (s *Service) finish(ctx context.Context, flow Flow, text string, res GenerationResult, start time.Time, topicCount int) {
	elapsed := time.Since(start)
	outcome := metrics.OutcomeOK
	if !res.OK {
		outcome = metrics.OutcomeError
	}
	s.metrics.ObserveGeneration(string(flow), outcome, elapsed)

	if res.OK && s.budget != nil {
		if err := s.budget.Record(ctx, s.scope, res.inputTokens+res.outputTokens); err != nil {
			slog.Warn("failed to record token usage", "scope", s.scope, "error", err)
		}
	}

	event := Event{
		ID:           uuid.New(),
		RequestID:    RequestID(ctx),
		Flow:         flow,
		Outcome:      outcome,
		Provider:     res.provider,
		Model:        res.model,
		PromptHash:   PromptHash(text),
		PromptChars:  len(text),
		OutputChars:  len(res.Text),
		Topics:       topicCount,
		InputTokens:  res.inputTokens,
		OutputTokens: res.outputTokens,
		Duration:     elapsed,
		Error:        res.ErrorMessage,
		CreatedAt:    time.Now(),
	}
	// The request may already be cancelled; the event is still worth keeping.
	if err := s.events.LogEvent(context.WithoutCancel(ctx), event); err != nil {
		slog.Warn("failed to log generation event", "flow", string(flow), "error", err)
	}
}

func sendChunk(ctx context.Context, ch chan<- ai.StreamChunk, c ai.StreamChunk) bool {
	select {
	case ch <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// IsGenerationError reports whether err came from the model rather than
// from validation or the budget.
func IsGenerationError(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}
