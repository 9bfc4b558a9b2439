package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// IterateSSE streams iterative-deepening rounds as Server-Sent Events.
// GET /api/iterate/stream?game=...&position=...&start=...&max=...&timeout_ms=...
//
// Every completed round is sent as a "round" event, followed by one
// "result" event and a closing "done".
func (h *Handlers) IterateSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeSSEError(w, "streaming not supported")
		return
	}

	query := r.URL.Query()
	req := IterateRequest{
		Game:       query.Get("game"),
		Position:   query.Get("position"),
		StartDepth: parseIntParam(query.Get("start"), 1),
		MaxDepth:   parseIntParam(query.Get("max"), 0),
		TimeoutMS:  parseIntParam(query.Get("timeout_ms"), 0),
	}

	resp, aerr := h.iterate(r.Context(), req, func(round RoundResponse) {
		writeSSEEvent(w, "round", round)
		flusher.Flush()
	})
	if aerr != nil {
		writeSSEError(w, aerr.Error())
		return
	}

	writeSSEEvent(w, "result", resp)
	writeSSEEvent(w, "done", nil)
	flusher.Flush()
}

// writeSSEEvent writes a Server-Sent Event to the response.
func writeSSEEvent(w http.ResponseWriter, event string, data any) {
	fmt.Fprintf(w, "event: %s\n", event)
	if data != nil {
		jsonData, _ := json.Marshal(data)
		fmt.Fprintf(w, "data: %s\n", jsonData)
	}
	fmt.Fprintf(w, "\n")
}

// writeSSEError writes an error event and closes the stream.
func writeSSEError(w http.ResponseWriter, message string) {
	writeSSEEvent(w, "error", map[string]string{"error": message})
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

// parseIntParam parses an integer from a string with a default value.
func parseIntParam(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return val
}
