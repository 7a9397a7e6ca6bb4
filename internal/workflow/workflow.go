// Package workflow runs a single control lookup: resolve the control, fetch
// the project weakness, generate the annotation and record the exchange.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/thebtf/controlnotes/pkg/models"
	"github.com/thebtf/controlnotes/pkg/similarity"
)

const (
	meterName = "github.com/thebtf/controlnotes/internal/workflow"

	maxSuggestions = 3
)

var (
	// ErrMissingControl is returned when neither a selected nor a typed control was given.
	ErrMissingControl = errors.New("no control provided")
	// ErrControlNotFound is wrapped by ControlNotFoundError in strict mode.
	ErrControlNotFound = errors.New("control not found")
)

// ControlNotFoundError reports a control absent from the catalog.
type ControlNotFoundError struct {
	Control     string
	Suggestions []string
}

func (e *ControlNotFoundError) Error() string {
	return fmt.Sprintf("control %q not found in catalog", e.Control)
}

func (e *ControlNotFoundError) Unwrap() error {
	return ErrControlNotFound
}

// Catalog looks up project weakness descriptions.
type Catalog interface {
	FindWeakness(controlID string) (string, bool)
}

// controlLister is implemented by catalogs that can offer suggestions for
// unknown controls.
type controlLister interface {
	ListControlIDs() []string
}

// Annotator produces the plain-language explanation for a control.
type Annotator interface {
	Generate(ctx context.Context, req models.AnnotationRequest) string
}

// History records completed lookups.
type History interface {
	Append(ctx context.Context, entry *models.HistoryEntry) (int64, error)
}

// Options configures a Workflow.
type Options struct {
	// Strict rejects controls absent from the catalog before any annotation
	// is generated. The default reports them without a weakness description.
	Strict bool
}

// Input is one lookup request as received from a form, API call or prompt.
type Input struct {
	Selected           string
	Typed              string
	IncludeRemediation bool
}

// Workflow orchestrates lookups. It holds no per-request state and is safe for
// concurrent use.
type Workflow struct {
	catalog   Catalog
	annotator Annotator
	history   History
	opts      Options

	lookups  metric.Int64Counter
	failures metric.Int64Counter
}

// New creates a Workflow.
func New(catalog Catalog, annotator Annotator, history History, opts Options) *Workflow {
	meter := otel.Meter(meterName)

	lookups, err := meter.Int64Counter("controlnotes.lookups",
		metric.WithDescription("Completed control lookups"))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create lookups counter")
	}
	failures, err := meter.Int64Counter("controlnotes.persistence_failures",
		metric.WithDescription("Lookups whose history entry could not be stored"))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create persistence failures counter")
	}

	return &Workflow{
		catalog:   catalog,
		annotator: annotator,
		history:   history,
		opts:      opts,
		lookups:   lookups,
		failures:  failures,
	}
}

// ResolveControl picks the selected control, falling back to the typed one.
// Whitespace only decides emptiness; the chosen value is returned unchanged.
func ResolveControl(in Input) (string, bool) {
	if strings.TrimSpace(in.Selected) != "" {
		return in.Selected, true
	}
	if strings.TrimSpace(in.Typed) != "" {
		return in.Typed, true
	}
	return "", false
}

// Run executes one lookup. Only ErrMissingControl and, in strict mode, a
// *ControlNotFoundError are returned; annotation and storage problems are
// reported through the result.
func (w *Workflow) Run(ctx context.Context, in Input) (*models.LookupResult, error) {
	control, ok := ResolveControl(in)
	if !ok {
		return nil, ErrMissingControl
	}

	result := &models.LookupResult{
		RequestID: uuid.NewString(),
		Control:   control,
	}

	if weakness, found := w.catalog.FindWeakness(control); found {
		result.Weakness = &weakness
	} else {
		result.Suggestions = w.suggest(control)
		if w.opts.Strict {
			log.Info().Str("control", control).Msg("Control not in catalog")
			return nil, &ControlNotFoundError{Control: control, Suggestions: result.Suggestions}
		}
	}

	result.Annotation = w.annotator.Generate(ctx, models.AnnotationRequest{
		ControlID:          control,
		IncludeRemediation: in.IncludeRemediation,
	})

	entry := models.NewHistoryEntry(result.RequestID, control, result.Annotation, result.Weakness)
	if _, err := w.history.Append(ctx, entry); err != nil {
		log.Error().Err(err).
			Str("control", control).
			Str("request_id", result.RequestID).
			Msg("Failed to record lookup")
		w.count(ctx, w.failures)
	} else {
		result.Persisted = true
	}

	w.count(ctx, w.lookups, attribute.Bool("weakness_found", result.HasWeakness()))
	log.Info().
		Str("control", control).
		Str("request_id", result.RequestID).
		Bool("weakness_found", result.HasWeakness()).
		Bool("persisted", result.Persisted).
		Msg("Lookup completed")

	return result, nil
}

func (w *Workflow) suggest(control string) []string {
	lister, ok := w.catalog.(controlLister)
	if !ok {
		return nil
	}
	return similarity.Suggest(control, lister.ListControlIDs(), similarity.DefaultThreshold, maxSuggestions)
}

func (w *Workflow) count(ctx context.Context, c metric.Int64Counter, attrs ...attribute.KeyValue) {
	if c == nil {
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(attrs...))
}
