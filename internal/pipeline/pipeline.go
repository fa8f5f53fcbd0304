package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/sitemapcrawl/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, with each step receiving the accumulated
// report from previous steps.
type Step interface {
	// Do executes the pipeline step.
	// Returns an error if the step fails critically; per-sitemap failures
	// are recorded in the report and do not surface here.
	Do(ctx context.Context, report *model.RunReport) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Finalizer is implemented by steps that must run even when the context
// was cancelled by an earlier step. They receive a context that is no
// longer cancelled.
type Finalizer interface {
	Step

	// RunsAfterCancel reports whether the step runs after cancellation.
	RunsAfterCancel() bool
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails. The first error is still returned.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence.
//
// Once ctx is cancelled only Finalizer steps still run, and the report is
// marked cancelled. Execute returns the first step error, or ctx.Err()
// when steps were skipped because of cancellation.
func (p *Pipeline) Execute(ctx context.Context, report *model.RunReport) error {
	var firstErr error
	var cancelErr error

	for _, step := range p.steps {
		stepCtx := ctx
		if err := ctx.Err(); err != nil {
			report.Cancelled = true
			if !runsAfterCancel(step) {
				p.logger.Debug("skipping step after cancellation", "step", step.Name())
				cancelErr = err
				continue
			}
			stepCtx = context.WithoutCancel(ctx)
		}

		p.logger.Debug("executing step", "step", step.Name(), "run", report.ID)

		if err := step.Do(stepCtx, report); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"run", report.ID,
				"error", err,
			)
			if firstErr == nil {
				firstErr = err
			}
			if !p.continueOnError {
				return err
			}
		} else {
			p.logger.Debug("step completed", "step", step.Name(), "run", report.ID)
		}

		report.Steps = append(report.Steps, step.Name())
	}

	if firstErr != nil {
		return firstErr
	}
	return cancelErr
}

func runsAfterCancel(step Step) bool {
	f, ok := step.(Finalizer)
	return ok && f.RunsAfterCancel()
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}

// FuncStep adapts a function to the Step interface.
type FuncStep struct {
	name  string
	final bool
	fn    func(ctx context.Context, report *model.RunReport) error
}

// NewFuncStep creates a named step that calls fn.
func NewFuncStep(name string, fn func(ctx context.Context, report *model.RunReport) error) *FuncStep {
	return &FuncStep{name: name, fn: fn}
}

// NewFinalFuncStep is like NewFuncStep, but the step also runs after
// the pipeline context was cancelled.
func NewFinalFuncStep(name string, fn func(ctx context.Context, report *model.RunReport) error) *FuncStep {
	return &FuncStep{name: name, final: true, fn: fn}
}

// Name returns the step name.
func (s *FuncStep) Name() string {
	return s.name
}

// RunsAfterCancel reports whether the step was created as a final step.
func (s *FuncStep) RunsAfterCancel() bool {
	return s.final
}

// Do calls the wrapped function.
func (s *FuncStep) Do(ctx context.Context, report *model.RunReport) error {
	return s.fn(ctx, report)
}
