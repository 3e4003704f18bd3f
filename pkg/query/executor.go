package query

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Executor evaluates queries against a fact source.
type Executor struct {
	source   Source
	parser   *Parser
	optional OptionalPolicy
	logger   *slog.Logger
}

// ExecutorOption configures an executor.
type ExecutorOption func(*Executor)

// WithOptionalPolicy selects how OPTIONAL matches are merged.
func WithOptionalPolicy(policy OptionalPolicy) ExecutorOption {
	return func(e *Executor) {
		e.optional = policy
	}
}

// WithAggregation selects the behavior of COUNT without GROUP BY.
func WithAggregation(mode AggregationMode) ExecutorOption {
	return func(e *Executor) {
		e.parser = NewParser(mode)
	}
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = logger
	}
}

// NewExecutor creates a new query executor.
func NewExecutor(source Source, opts ...ExecutorOption) *Executor {
	e := &Executor{
		source:   source,
		parser:   NewParser(AggregationStrict),
		optional: OptionalFirst,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return e
}

// Result is the outcome of one query. An empty Rows slice is a valid result.
type Result struct {
	ID      uuid.UUID     `json:"id"`
	Columns []string      `json:"columns"`
	Rows    []Binding     `json:"rows"`
	Elapsed time.Duration `json:"-"`
}

// Count returns the number of result rows.
func (r *Result) Count() int {
	return len(r.Rows)
}

// Execute parses and evaluates a query. Parse failures are returned as
// *Error before any matching happens.
func (e *Executor) Execute(ctx context.Context, text string) (*Result, error) {
	plan, err := e.parser.Parse(text)
	if err != nil {
		e.logger.Debug("query rejected", "error", err)
		return nil, err
	}
	return e.Run(ctx, plan)
}

// Run evaluates a parsed plan: match, optional merge, filter, aggregate,
// sort, limit and project. The context is checked between stages.
func (e *Executor) Run(ctx context.Context, plan *Plan) (*Result, error) {
	start := time.Now()
	result := &Result{ID: uuid.New(), Columns: plan.Columns()}
	log := e.logger.With("query_id", result.ID.String())

	if plan.IgnoredOptionals > 0 {
		log.Warn("only the first OPTIONAL block is evaluated", "ignored", plan.IgnoredOptionals)
	}

	filters := CompileFilters(plan.Filters)
	optionalFilters := CompileFilters(plan.OptionalFilters)
	if unsupported := append(filters.Unsupported(), optionalFilters.Unsupported()...); len(unsupported) > 0 {
		log.Debug("filters not understood, keeping all rows", "filters", unsupported)
	}

	rows := Match(e.source, plan.Where, nil)
	log.Debug("patterns matched", "patterns", len(plan.Where), "rows", len(rows))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows = MergeOptional(e.source, rows, plan.Optional, optionalFilters, e.optional)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows = filters.Apply(rows)
	log.Debug("filters applied", "filters", len(filters), "rows", len(rows))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows = Aggregate(rows, plan)
	rows = Sort(rows, plan.OrderBy, plan.CountAliases())
	rows = Limit(rows, plan.Limit)
	result.Rows = Project(rows, result.Columns)
	result.Elapsed = time.Since(start)

	log.Info("query executed", "rows", result.Count(), "elapsed", result.Elapsed)
	return result, nil
}
