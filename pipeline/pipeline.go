// Package pipeline runs a mutation as a fixed, ordered list of named steps.
//
// Steps communicate only through a request-scoped [Stash]. Each step
// declares the stash keys it reads and writes; the pipeline checks the reads
// before running a step and the writes after it, so a mis-ordered pipeline
// fails loudly instead of acting on missing state. A step may end the run
// early with [Return].
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jacentio/fundraiser/apierr"
	"github.com/jacentio/fundraiser/internal/metrics"
)

// Result is what a step reports back to the pipeline.
type Result struct {
	done  bool
	value any
}

// Continue proceeds to the next step.
func Continue() Result { return Result{} }

// Return ends the run with value; remaining steps are skipped.
func Return(value any) Result { return Result{done: true, value: value} }

// Done reports whether the result ends the run.
func (r Result) Done() bool { return r.done }

// Step is one unit of a pipeline, performing at most one storage operation.
type Step struct {
	Name   string
	Reads  []string
	Writes []string
	Run    func(ctx context.Context, stash *Stash) (Result, error)
}

// Noop returns a step that does nothing. It keeps a pipeline's shape fixed
// when a branch has no work, such as the share lookup for an owner.
func Noop(name string) Step {
	return Step{
		Name: name,
		Run: func(context.Context, *Stash) (Result, error) {
			return Continue(), nil
		},
	}
}

// Pipeline is an ordered list of steps fixed at construction.
type Pipeline struct {
	name   string
	steps  []Step
	logger *slog.Logger
}

// New creates a pipeline. A nil logger uses slog.Default().
func New(name string, logger *slog.Logger, steps ...Step) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{name: name, steps: steps, logger: logger}
}

// Name returns the pipeline name.
func (p *Pipeline) Name() string { return p.name }

// Steps returns the step names in order.
func (p *Pipeline) Steps() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.Name
	}
	return names
}

// Run executes the steps in order against stash. It returns the value of the
// step that ended the run early, or the value stored under ResultKey once all
// steps have run. The first step error aborts the run and is returned as is.
func (p *Pipeline) Run(ctx context.Context, stash *Stash) (any, error) {
	for _, step := range p.steps {
		for _, key := range step.Reads {
			if !stash.Has(key) {
				return nil, p.abort(step, apierr.Internalf("%s/%s: stash key %q not set", p.name, step.Name, key))
			}
		}

		res, err := step.Run(ctx, stash)
		if err != nil {
			return nil, p.abort(step, err)
		}
		if res.done {
			p.logger.Debug("pipeline returned early", "pipeline", p.name, "step", step.Name)
			metrics.PipelineRunsTotal.WithLabelValues(p.name, "returned").Inc()
			return res.value, nil
		}

		for _, key := range step.Writes {
			if !stash.Has(key) {
				return nil, p.abort(step, apierr.Internalf("%s/%s: declared write %q not set", p.name, step.Name, key))
			}
		}
	}

	metrics.PipelineRunsTotal.WithLabelValues(p.name, "completed").Inc()
	return stash.values[ResultKey], nil
}

func (p *Pipeline) abort(step Step, err error) error {
	p.logger.Debug("pipeline aborted", "pipeline", p.name, "step", step.Name, "error", err)
	metrics.PipelineRunsTotal.WithLabelValues(p.name, "aborted").Inc()
	return err
}

// Output converts a Run result to T. A nil value yields the zero T.
func Output[T any](v any, err error) (T, error) {
	var zero T
	if err != nil || v == nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("pipeline: result is %T, not %T", v, zero)
	}
	return out, nil
}
