package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/askdb/askdb/internal/observability"
)

// NoPromptMessage is served, with status 200, when a request carries no
// prompt.
const NoPromptMessage = "Pass a prompt in the query string or in the request body for the correct result."

const maxPromptBodyBytes = 1 << 20

func handlePrompt(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	logger := observability.RequestLogger(r.Context(), deps.Logger)
	logger.InfoContext(r.Context(), "prompt request received", slog.String("method", r.Method))

	question := promptFromRequest(r)
	if question == "" {
		observability.ObserveGeneration(observability.OutcomeNoPrompt)
		writeText(w, http.StatusOK, NoPromptMessage)
		return
	}
	if deps.Generator == nil {
		logger.ErrorContext(r.Context(), "prompt generator is not configured")
		observability.ObserveGeneration(observability.OutcomeFailure)
		observability.WriteInternalError(w)
		return
	}

	response, err := deps.Generator.Generate(r.Context(), question)
	if err != nil {
		logger.ErrorContext(r.Context(), "prompt generation failed", slog.Any("error", err))
		observability.ObserveGeneration(observability.OutcomeFailure)
		observability.WriteInternalError(w)
		return
	}
	observability.ObserveGeneration(observability.OutcomeSuccess)
	writeText(w, http.StatusOK, response)
}

// promptFromRequest returns the prompt query parameter, falling back to the
// prompt field of a JSON object body. Unreadable or malformed bodies yield "".
func promptFromRequest(r *http.Request) string {
	if prompt := r.URL.Query().Get("prompt"); prompt != "" {
		return prompt
	}
	if r.Body == nil {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxPromptBodyBytes))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	prompt, _ := body["prompt"].(string)
	return prompt
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
