package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/p-n-ai/minerva/internal/export"
	"github.com/p-n-ai/minerva/internal/prompt"
	"github.com/p-n-ai/minerva/internal/reflow"
)

type syllabusResponse struct {
	Curriculum  string   `json:"curriculum"`
	Formatted   string   `json:"formatted"`
	Topics      []string `json:"topics"`
	Suggestions []string `json:"suggestions"`
	Success     bool     `json:"success"`
}

func (h *Handler) handleSyllabus(w http.ResponseWriter, r *http.Request) {
	body, err := h.readBody(w, r, "syllabus")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req prompt.ProfileRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, r, errInvalidJSON)
		return
	}

	ctx, cancel := h.generationContext(r)
	defer cancel()

	res, err := h.svc.GenerateCurriculum(ctx, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, syllabusResponse{
		Curriculum:  res.Curriculum,
		Formatted:   res.Formatted,
		Topics:      res.Topics,
		Suggestions: res.Suggestions,
		Success:     true,
	})
}

type teachResponse struct {
	Content   string `json:"content"`
	Formatted string `json:"formatted"`
	Success   bool   `json:"success"`
}

func (h *Handler) handleTeach(w http.ResponseWriter, r *http.Request) {
	body, err := h.readBody(w, r, "teach")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req prompt.TopicRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, r, errInvalidJSON)
		return
	}

	ctx, cancel := h.generationContext(r)
	defer cancel()

	res, err := h.svc.Teach(ctx, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, teachResponse{
		Content:   res.Content,
		Formatted: res.Formatted,
		Success:   true,
	})
}

type topicsRequest struct {
	Text   string `json:"text"`
	Policy string `json:"policy"`
	Title  string `json:"title"`
}

// extract decodes a topics request and applies its policy.
func (h *Handler) extract(w http.ResponseWriter, r *http.Request) (topicsRequest, []string, error) {
	var req topicsRequest
	body, err := h.readBody(w, r, "topics")
	if err != nil {
		return req, nil, err
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, nil, errInvalidJSON
	}
	list, ok := h.svc.ExtractTopics(req.Text, strings.TrimSpace(req.Policy))
	if !ok {
		return req, nil, &prompt.ValidationError{Fields: []string{"policy"}, Reason: prompt.ReasonInvalid}
	}
	return req, list, nil
}

func (h *Handler) handleTopics(w http.ResponseWriter, r *http.Request) {
	_, list, err := h.extract(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"topics": list})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	req, list, err := h.extract(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Buffer so a failed render can still be reported as JSON.
	var buf bytes.Buffer
	if err := export.WriteTopics(&buf, strings.TrimSpace(req.Title), list); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="topics.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

type reflowRequest struct {
	Text    string `json:"text"`
	Variant string `json:"variant"`
}

func (h *Handler) handleReflow(w http.ResponseWriter, r *http.Request) {
	body, err := h.readBody(w, r, "reflow")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req reflowRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, r, errInvalidJSON)
		return
	}
	v, ok := reflow.ParseVariant(req.Variant)
	if !ok {
		writeError(w, r, &prompt.ValidationError{Fields: []string{"variant"}, Reason: prompt.ReasonInvalid})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"formatted": h.svc.Reflow(req.Text, v)})
}

type levelsResponse struct {
	ExperienceLevels []string `json:"experienceLevels"`
	TeachingLevels   []string `json:"teachingLevels"`
}

func (h *Handler) handleLevels(w http.ResponseWriter, _ *http.Request) {
	cat := h.svc.Catalog()
	writeJSON(w, http.StatusOK, levelsResponse{
		ExperienceLevels: cat.ExperienceLevels(),
		TeachingLevels:   cat.TeachingLevels(),
	})
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

const checkTimeout = 3 * time.Second

type readyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// handleReadyz pings every configured dependency. With ?probe=true it also
// runs the model checks and asks the model for its fixed reply.
func (h *Handler) handleReadyz(w http.ResponseWriter, r *http.Request) {
	failures := map[string]string{}
	runChecks(r.Context(), h.checks, failures)
	if r.URL.Query().Get("probe") == "true" {
		runChecks(r.Context(), h.model, failures)
		ctx, cancel := h.generationContext(r)
		if err := h.svc.Probe(ctx); err != nil {
			failures["model"] = err.Error()
		}
		cancel()
	}

	if len(failures) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, readyResponse{Status: "unavailable", Checks: failures})
		return
	}
	writeJSON(w, http.StatusOK, readyResponse{Status: "ready"})
}

// runChecks records the error of every failing check under its name.
func runChecks(ctx context.Context, checks []Check, failures map[string]string) {
	for _, c := range checks {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		if err := c.Ping(cctx); err != nil {
			failures[c.Name] = err.Error()
		}
		cancel()
	}
}
