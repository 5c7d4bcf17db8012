// Package sqlgen answers a natural-language question against the configured
// database: it reads the schema, asks the model for a query, runs the query
// and formats the outcome.
package sqlgen

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/askdb/askdb/internal/database"
	"github.com/askdb/askdb/internal/nl2sql"
	"github.com/askdb/askdb/internal/observability"
	"github.com/askdb/askdb/internal/query"
	"github.com/askdb/askdb/internal/schema"
)

type Generator struct {
	Sessions  database.SessionOpener
	Completer nl2sql.Completer
	Logger    *slog.Logger
}

// Generate answers question. Both the schema read and the generated query run
// on one session, which is released before Generate returns on every path.
// The generated statement is executed as returned by the model.
func (g *Generator) Generate(ctx context.Context, question string) (string, error) {
	if g.Sessions == nil || g.Completer == nil {
		return "", fmt.Errorf("generator is not configured")
	}
	logger := observability.RequestLogger(ctx, g.Logger)

	start := time.Now()
	session, err := g.Sessions.OpenSession(ctx)
	observability.ObserveStage(observability.StageSession, time.Since(start), err)
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			logger.WarnContext(ctx, "release database session", slog.Any("error", closeErr))
		}
	}()

	start = time.Now()
	entries, err := schema.Read(ctx, session)
	observability.ObserveStage(observability.StageSchema, time.Since(start), err)
	if err != nil {
		return "", err
	}
	schemaJSON, err := schema.EncodeJSON(entries)
	if err != nil {
		return "", err
	}

	prompt := nl2sql.BuildPrompt(schemaJSON, question)
	logger.DebugContext(ctx, "generation prompt", slog.String("prompt", prompt))

	logger.InfoContext(ctx, "sending sql generation request", slog.Int("schema_columns", len(entries)))
	start = time.Now()
	completion, err := g.Completer.Complete(ctx, prompt)
	observability.ObserveStage(observability.StageCompletion, time.Since(start), err)
	if err != nil {
		return "", fmt.Errorf("complete prompt: %w", err)
	}
	logger.DebugContext(ctx, "completion received",
		slog.String("text", completion.Text),
		slog.String("finish_reason", completion.FinishReason),
		slog.String("model", completion.Model),
		slog.Int("prompt_tokens", completion.PromptTokens),
		slog.Int("completion_tokens", completion.CompletionTokens),
	)

	sqlText := query.BuildQuery(completion.Text)
	logger.InfoContext(ctx, "generated sql", slog.String("sql", sqlText))

	start = time.Now()
	executed, err := query.Execute(ctx, session, sqlText)
	observability.ObserveStage(observability.StageExecute, time.Since(start), err)
	if err != nil {
		return "", err
	}
	logger.InfoContext(ctx, "sql result fetched",
		slog.Int("rows", len(executed.Rows)),
		slog.Duration("duration", executed.Duration),
	)

	return query.Format(question, sqlText, query.Render(executed.Rows)), nil
}
