package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/minerva/internal/prompt"
	"github.com/p-n-ai/minerva/internal/reflow"
	"github.com/p-n-ai/minerva/internal/tutor"
)

// Stream frame types.
const (
	frameChunk = "chunk"
	frameDone  = "done"
	frameError = "error"
)

// streamFrame is one server message on the lesson stream.
type streamFrame struct {
	Type      string `json:"type"`
	Content   string `json:"content,omitempty"`
	Formatted string `json:"formatted,omitempty"`
	Error     string `json:"error,omitempty"`
}

// handleTeachStream upgrades to a websocket, reads one TopicRequest and
// streams the lesson back. Closing the socket cancels generation.
func (h *Handler) handleTeachStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "request_id", tutor.RequestID(r.Context()), "error", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxBodyBytes)

	ctx, cancel := h.generationContext(r)
	defer cancel()

	var req prompt.TopicRequest
	if err := wsjson.Read(ctx, conn, &req); err != nil {
		if websocket.CloseStatus(err) != -1 {
			return
		}
		h.sendStreamError(ctx, conn, errInvalidJSON)
		return
	}

	// From here on the client only closes; a close cancels ctx.
	ctx = conn.CloseRead(ctx)

	chunks, err := h.svc.StreamLesson(ctx, req)
	if err != nil {
		h.sendStreamError(ctx, conn, err)
		return
	}

	var content strings.Builder
	for chunk := range chunks {
		if chunk.Error != nil {
			h.sendStreamError(ctx, conn, chunk.Error)
			return
		}
		if chunk.Content != "" {
			content.WriteString(chunk.Content)
			if err := wsjson.Write(ctx, conn, streamFrame{Type: frameChunk, Content: chunk.Content}); err != nil {
				slog.Info("lesson stream client gone", "request_id", tutor.RequestID(r.Context()), "error", err)
				cancel()
				// Drain so the producer can finish and record the event.
				for range chunks {
				}
				return
			}
		}
	}
	if ctx.Err() != nil {
		return
	}

	done := streamFrame{Type: frameDone, Formatted: h.svc.Reflow(content.String(), reflow.Teaching)}
	if err := wsjson.Write(ctx, conn, done); err != nil {
		return
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

func (h *Handler) sendStreamError(ctx context.Context, conn *websocket.Conn, err error) {
	_, msg := statusFor(err)
	if werr := wsjson.Write(ctx, conn, streamFrame{Type: frameError, Error: msg}); werr != nil {
		return
	}
	conn.Close(websocket.StatusNormalClosure, "")
}
