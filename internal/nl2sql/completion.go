package nl2sql

import (
	"context"
	"errors"
)

var ErrEmptyChoices = errors.New("empty completion choices")

// Params are the sampling parameters sent with every completion request.
type Params struct {
	Temperature      float64
	MaxTokens        int
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
	Stop             []string
}

// DefaultParams makes generation deterministic and stops at the first
// comment marker or statement terminator.
func DefaultParams() Params {
	return Params{
		Temperature:      0,
		MaxTokens:        200,
		TopP:             1,
		FrequencyPenalty: 0,
		PresencePenalty:  0,
		Stop:             []string{"#", ";"},
	}
}

type Completion struct {
	Text             string
	FinishReason     string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

type Completer interface {
	Complete(ctx context.Context, prompt string) (Completion, error)
}
