package harness

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/pgxlate/internal/config"
	"github.com/roach88/pgxlate/internal/exprdoc"
	"github.com/roach88/pgxlate/internal/provider"
	"github.com/roach88/pgxlate/internal/qerrors"
	"github.com/roach88/pgxlate/internal/sqlexpr"
	"github.com/roach88/pgxlate/internal/store"
	"github.com/roach88/pgxlate/internal/testutil"
)

// Harness translates expression documents through a provider and journals
// each outcome.
type Harness struct {
	provider *provider.Provider
	builder  *exprdoc.Builder
	journal  *store.Journal
	logger   *zap.Logger
}

type settings struct {
	logger  *zap.Logger
	journal *store.Journal
}

// Option configures a Harness.
type Option func(*settings)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithJournal records every outcome in j. Without a journal outcomes are
// not persisted and carry seq 0.
func WithJournal(j *store.Journal) Option {
	return func(s *settings) { s.journal = j }
}

func newSettings(opts []Option) settings {
	s := settings{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// New creates a Harness over p.
func New(p *provider.Provider, opts ...Option) *Harness {
	s := newSettings(opts)
	return &Harness{
		provider: p,
		builder:  exprdoc.NewBuilder(p.Factory(), p.Translators()),
		journal:  s.journal,
		logger:   s.logger,
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against its own provider and a fresh in-memory
// journal, with sequential record IDs and a deterministic clock, so
// outcomes are reproducible across runs.
//
// An error is returned when the scenario cannot run at all (unreadable
// options or documents, journal failures). Failed translations and unmet
// expectations are reported in the Result.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	options := config.Default()
	if scenario.Options != "" {
		var err error
		if options, err = config.Load(scenario.Options); err != nil {
			return nil, fmt.Errorf("failed to load options: %w", err)
		}
	}

	p, err := provider.New(options, provider.WithLogger(newSettings(opts).logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	j, err := store.NewJournal(ctx, st,
		store.WithIDGenerator(testutil.NewSequentialIDGenerator("case")),
		store.WithSequencer(testutil.NewDeterministicClock()))
	if err != nil {
		return nil, fmt.Errorf("failed to create journal: %w", err)
	}

	h := New(p, append(opts, WithJournal(j))...)
	result := NewResult()
	for i, c := range scenario.Cases {
		doc, err := c.load()
		if err != nil {
			return nil, fmt.Errorf("case %d: %w", i, err)
		}
		out, tr, err := h.translateCase(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("case %d (%s): %w", i, doc.Name, err)
		}
		result.Outcomes = append(result.Outcomes, out)

		msgs := checkExpect(out, c.Expect)
		if len(msgs) == 0 && c.Expect != nil {
			msgs = checkTruth(tr, c.Expect.Truth)
		}
		for _, msg := range msgs {
			result.AddError(fmt.Sprintf("case %s: %s", out.Name, msg))
		}
		h.logger.Info("case completed",
			zap.Int("case", i),
			zap.String("name", out.Name),
			zap.Int64("seq", out.Seq),
			zap.String("error_code", out.ErrorCode))
	}

	actx := &AssertionContext{Store: st, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func (c Case) load() (*exprdoc.Document, error) {
	if c.Inline != nil {
		return c.Inline, nil
	}
	return exprdoc.Load(c.Document)
}

// Translate builds doc, translates it and journals the outcome. Build and
// translation failures are part of the Outcome; the returned error only
// reports a journal failure.
func (h *Harness) Translate(ctx context.Context, doc *exprdoc.Document) (Outcome, error) {
	out, _, err := h.translateCase(ctx, doc)
	return out, err
}

// translation is the rewritten tree of a successful case and the values
// its parameters were bound to.
type translation struct {
	expr   sqlexpr.Expression
	values map[string]any
}

func (h *Harness) translateCase(ctx context.Context, doc *exprdoc.Document) (Outcome, translation, error) {
	out := Outcome{Name: doc.Name}

	res, values, input, err := h.translate(ctx, doc)
	out.Input = input
	if err != nil {
		out.ErrorCode = string(qerrors.Code(err))
		out.Error = err.Error()
	} else {
		out.SQL = res.SQL
		out.Parameters = res.Parameters
		out.Nullable = res.Nullable
	}

	tr := translation{expr: res.Expression, values: values}
	if h.journal == nil {
		return out, tr, nil
	}
	rec, err := h.journal.Append(ctx, store.Record{
		Name:        out.Name,
		Input:       out.Input,
		SQL:         out.SQL,
		Parameters:  out.Parameters,
		Nullable:    out.Nullable,
		ErrorCode:   out.ErrorCode,
		Error:       out.Error,
		OptionsHash: h.provider.Options().Hash(),
	})
	if err != nil {
		return Outcome{}, translation{}, fmt.Errorf("failed to journal outcome: %w", err)
	}
	out.Seq = rec.Seq
	return out, tr, nil
}

func (h *Harness) translate(ctx context.Context, doc *exprdoc.Document) (provider.Result, map[string]any, string, error) {
	e, err := h.builder.Build(doc)
	if err != nil {
		return provider.Result{}, nil, "", err
	}
	input := sqlexpr.Format(e)

	values, err := h.builder.ParameterValues(doc, e)
	if err != nil {
		return provider.Result{}, nil, input, err
	}
	res, err := h.provider.Translate(ctx, provider.Request{
		Expression:              e,
		ParameterValues:         values,
		AllowOptimizedExpansion: doc.Optimized,
	})
	return res, values, input, err
}
