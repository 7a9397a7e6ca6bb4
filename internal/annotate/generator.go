package annotate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thebtf/controlnotes/pkg/models"
)

// MissingCredentialMessage is returned in place of an annotation when no API
// key is configured.
const MissingCredentialMessage = "AI API key not found. Please check your environment variables."

var (
	// ErrMissingCredential is returned by Ask when no API key is configured.
	ErrMissingCredential = errors.New("AI API key not found")
	// ErrEmptyQuestion is returned by Ask for a blank question.
	ErrEmptyQuestion = errors.New("question is empty")
)

// Options configures a Generator.
type Options struct {
	Client     TextClient // nil selects the Gemini client
	APIKey     string
	Model      string
	Timeout    time.Duration // per call, 0 disables
	RenderHTML bool          // convert markdown output to sanitized HTML
}

// Generator produces annotations for controls.
type Generator struct {
	client     TextClient
	model      string
	timeout    time.Duration
	hasKey     bool
	renderHTML bool
}

// NewGenerator creates a Generator.
func NewGenerator(opts Options) *Generator {
	client := opts.Client
	if client == nil {
		client = NewGeminiClient(opts.APIKey)
	}
	return &Generator{
		client:     client,
		model:      opts.Model,
		timeout:    opts.Timeout,
		hasKey:     opts.APIKey != "",
		renderHTML: opts.RenderHTML,
	}
}

// Generate returns an annotation for the requested control. It never fails:
// a missing credential yields MissingCredentialMessage and a service failure
// yields an error description, both returned as ordinary text.
func (g *Generator) Generate(ctx context.Context, req models.AnnotationRequest) string {
	if !g.hasKey {
		log.Warn().Str("control", req.ControlID).Msg("AI API key not configured")
		return g.finish(MissingCredentialMessage)
	}

	prompt := BuildPrompt(req.ControlID, req.IncludeRemediation)
	if e := log.Debug(); e.Enabled() {
		e.Str("control", req.ControlID).
			Bool("remediation", req.IncludeRemediation).
			Str("model", g.model).
			Int("prompt_tokens", countTokens(prompt)).
			Msg("Requesting annotation")
	}

	start := time.Now()
	text, err := g.call(ctx, prompt)
	if err != nil {
		log.Error().Err(err).Str("control", req.ControlID).Msg("Annotation request failed")
		return g.finish(fmt.Sprintf("Error getting AI description: %v", err))
	}

	if e := log.Debug(); e.Enabled() {
		e.Str("control", req.ControlID).
			Dur("elapsed", time.Since(start)).
			Int("response_tokens", countTokens(text)).
			Msg("Annotation received")
	}
	return g.finish(text)
}

// Ask sends a free-form question and returns the raw model output.
func (g *Generator) Ask(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrEmptyQuestion
	}
	if !g.hasKey {
		return "", ErrMissingCredential
	}
	text, err := g.call(ctx, question)
	if err != nil {
		return "", fmt.Errorf("get AI response: %w", err)
	}
	return text, nil
}

func (g *Generator) call(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	return g.client.GenerateText(ctx, g.model, prompt)
}

func (g *Generator) finish(text string) string {
	if g.renderHTML {
		return RenderMarkdown(text)
	}
	return text
}
