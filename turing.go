package turing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mathieusouflis/turing/internal/logging"
	"github.com/mathieusouflis/turing/internal/runtime"
	"github.com/mathieusouflis/turing/pkg/adapters/memory"
	"github.com/mathieusouflis/turing/pkg/domain"
	"github.com/mathieusouflis/turing/pkg/observability"
	"github.com/mathieusouflis/turing/pkg/ports"
	"github.com/mathieusouflis/turing/pkg/schema"
	"github.com/mathieusouflis/turing/pkg/session"
)

// Step budgets applied when the caller does not configure them.
const (
	DefaultMaxSteps      uint64 = 1000
	DefaultMaxStepsLimit uint64 = 100000
)

const tracerName = "github.com/mathieusouflis/turing"

// Service is the entry point of the system. It is safe for concurrent use;
// operations on the same machine are serialized.
type Service struct {
	sessions *session.Manager
	catalog  ports.TemplateCatalog
	streams  *Streams

	metrics  *observability.Metrics
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
	newID    func() string
	maxSteps uint64
	limit    uint64
	tape     schema.Limits

	sessionOpts []session.Option
}

// Option defines a functional option for configuring the Service.
type Option func(*Service)

// WithCatalog sets where templates are looked up (default: the builtin templates).
func WithCatalog(c ports.TemplateCatalog) Option {
	return func(s *Service) {
		s.catalog = c
	}
}

// WithLocker adds a distributed lock around every machine operation.
func WithLocker(l ports.DistributedLocker, ttl time.Duration) Option {
	return func(s *Service) {
		s.sessionOpts = append(s.sessionOpts, session.WithLocker(l), session.WithLockTTL(ttl))
	}
}

// WithMetrics records engine activity and operation results.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLifecycleHooks registers engine hooks, called after the metrics hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Service) {
		s.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStepLimits sets the budget of a run without an explicit one and the
// hard cap every requested budget is clamped to.
func WithStepLimits(defaultSteps, limit uint64) Option {
	return func(s *Service) {
		if limit > 0 {
			s.limit = limit
		}
		if defaultSteps > 0 {
			s.maxSteps = defaultSteps
		}
	}
}

// WithTapeLimits bounds the head position and tape length accepted by Create
// and Reset. Zero keeps the schema default for that bound.
func WithTapeLimits(maxHead, maxTape int) Option {
	return func(s *Service) {
		if maxHead > 0 {
			s.tape.MaxHead = maxHead
		}
		if maxTape > 0 {
			s.tape.MaxTape = maxTape
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator overrides how IDs of new machines are generated.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// New creates a Service persisting machines in store.
func New(store ports.MachineStore, opts ...Option) *Service {
	s := &Service{
		catalog:  memory.NewBuiltinCatalog(),
		logger:   logging.NewNop(),
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
		newID:    NewID,
		maxSteps: DefaultMaxSteps,
		limit:    DefaultMaxStepsLimit,
		tape:     schema.DefaultLimits,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxSteps > s.limit {
		s.maxSteps = s.limit
	}

	s.streams = NewStreams(s.logger)
	s.sessions = session.NewManager(store, append(s.sessionOpts, session.WithLogger(s.logger))...)
	return s
}

// Store returns the underlying machine store.
func (s *Service) Store() ports.MachineStore {
	return s.sessions.Store()
}

// Catalog returns the template catalog.
func (s *Service) Catalog() ports.TemplateCatalog {
	return s.catalog
}

// Subscribe follows the changes of one machine, or of all machines when id is empty.
func (s *Service) Subscribe(id string) (<-chan *domain.MachineDiff, func()) {
	return s.streams.Subscribe(id)
}

// Limits returns the default run budget and the hard cap.
func (s *Service) Limits() (defaultSteps, limit uint64) {
	return s.maxSteps, s.limit
}

// Create builds a machine from the request, validates it and stores it.
func (s *Service) Create(ctx context.Context, req CreateRequest) (m *domain.Machine, err error) {
	ctx, end := s.start(ctx, "create", "")
	defer func() { end(err) }()

	if req.ID != "" {
		if err := domain.ValidateID(req.ID); err != nil {
			return nil, err
		}
	}

	def, err := s.resolveDefinition(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := schema.ValidateWithLimits(def, s.tape); err != nil {
		return nil, err
	}
	for _, w := range schema.Warnings(def) {
		s.logger.Warn("Definition warning", "warning", w)
	}

	id := req.ID
	if id == "" {
		id = s.newID()
	}
	m = domain.NewMachine(id, req.Name, def, s.now())
	if err := s.sessions.Create(ctx, m); err != nil {
		return nil, err
	}

	s.logger.Info("Machine created", "machine_id", m.ID, "state", m.CurrentState, "rules", len(def.Rules))
	s.streams.Publish(domain.Diff(nil, m))
	return m, nil
}

func (s *Service) resolveDefinition(ctx context.Context, req CreateRequest) (domain.Definition, error) {
	var def domain.Definition
	switch {
	case req.Template != "":
		t, err := s.catalog.Template(ctx, req.Template)
		if err != nil {
			return domain.Definition{}, err
		}
		def = t.Definition
	case req.Definition != nil:
		def = req.Definition.Clone()
	default:
		def = domain.DefaultDefinition()
	}

	if def.InitialState == "" {
		def.InitialState = domain.DefaultInitialState
	}
	if len(def.FinalStates) == 0 {
		def.FinalStates = []string{domain.DefaultFinalState}
	}
	if len(def.Rules) == 0 {
		def.Rules = domain.DefaultDefinition().Rules
	}
	if def.InitialTape == "" {
		def.InitialTape = domain.DefaultTape
	}

	if req.Tape != nil {
		def.InitialTape = *req.Tape
	}
	if req.Head != nil {
		def.InitialHead = *req.Head
	}
	return def, nil
}

// Get returns the machine with the given ID.
func (s *Service) Get(ctx context.Context, id string) (m *domain.Machine, err error) {
	ctx, end := s.start(ctx, "get", id)
	defer func() { end(err) }()

	return s.sessions.Load(ctx, id)
}

// List returns every stored machine, oldest first.
// Machines deleted while listing are skipped.
func (s *Service) List(ctx context.Context) (machines []*domain.Machine, err error) {
	ctx, end := s.start(ctx, "list", "")
	defer func() { end(err) }()

	ids, err := s.sessions.List(ctx)
	if err != nil {
		return nil, err
	}

	machines = make([]*domain.Machine, 0, len(ids))
	for _, id := range ids {
		m, err := s.sessions.Store().Load(ctx, id)
		if errors.Is(err, domain.ErrMachineNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", id, err)
		}
		machines = append(machines, m)
	}

	sort.SliceStable(machines, func(i, j int) bool {
		if machines[i].CreatedAt.Equal(machines[j].CreatedAt) {
			return machines[i].ID < machines[j].ID
		}
		return machines[i].CreatedAt.Before(machines[j].CreatedAt)
	})
	return machines, nil
}

// Step executes at most one transition of the machine.
func (s *Service) Step(ctx context.Context, id string) (res *StepResult, err error) {
	ctx, end := s.start(ctx, "step", id)
	defer func() { end(err) }()

	var outcome domain.StepOutcome
	m, err := s.update(ctx, id, func(ctx context.Context, m *domain.Machine) error {
		eng := s.restore(m)
		var err error
		outcome, err = eng.Step()
		if err != nil {
			return err
		}
		eng.Apply(m)

		var steps uint64
		if outcome == domain.Executed {
			steps = 1
		}
		m.Record(steps, outcome.HaltReason(), s.now())
		return nil
	})
	if err != nil {
		return nil, err
	}

	trace.SpanFromContext(ctx).SetAttributes(attribute.String("turing.outcome", string(outcome)))
	return newStepResult(m, outcome), nil
}

// Run executes up to maxSteps transitions. Zero selects the default budget;
// any budget is clamped to the configured limit. Cancelling ctx stops the run
// and nothing is persisted.
func (s *Service) Run(ctx context.Context, id string, maxSteps uint64) (res *RunResult, err error) {
	ctx, end := s.start(ctx, "run", id)
	defer func() { end(err) }()

	budget := s.budget(maxSteps)

	var result domain.RunResult
	m, err := s.update(ctx, id, func(ctx context.Context, m *domain.Machine) error {
		eng := s.restore(m)
		var err error
		result, err = eng.RunContext(ctx, budget)
		if err != nil {
			return err
		}
		eng.Apply(m)
		m.Record(result.StepsExecuted, result.HaltReason, s.now())
		return nil
	})
	if err != nil {
		return nil, err
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int64("turing.steps", int64(result.StepsExecuted)),
		attribute.String("turing.halt_reason", string(result.HaltReason)),
	)
	return &RunResult{RunResult: result, MaxSteps: budget, Machine: m}, nil
}

func (s *Service) budget(requested uint64) uint64 {
	if requested == 0 {
		requested = s.maxSteps
	}
	if requested > s.limit {
		return s.limit
	}
	return requested
}

// Reset rewinds the machine to its initial state. A nil request, or nil fields,
// fall back to the machine's initial tape and head.
func (s *Service) Reset(ctx context.Context, id string, req *ResetRequest) (m *domain.Machine, err error) {
	ctx, end := s.start(ctx, "reset", id)
	defer func() { end(err) }()

	return s.update(ctx, id, func(ctx context.Context, m *domain.Machine) error {
		content, head := m.Definition.InitialTape, m.Definition.InitialHead
		if req != nil && req.Content != nil {
			content = *req.Content
		}
		if req != nil && req.Head != nil {
			head = *req.Head
		}
		if err := schema.ValidateTape(content, head, s.tape); err != nil {
			return err
		}

		eng := s.restore(m)
		eng.Reset(content, head)
		eng.Apply(m)
		m.Steps = 0
		m.Record(0, "", s.now())
		return nil
	})
}

// Delete removes the machine.
func (s *Service) Delete(ctx context.Context, id string) (err error) {
	ctx, end := s.start(ctx, "delete", id)
	defer func() { end(err) }()

	if err := s.sessions.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Machine deleted", "machine_id", id)
	s.streams.Publish(&domain.MachineDiff{MachineID: id, Deleted: true})
	return nil
}

// Templates returns the names of the available templates.
func (s *Service) Templates(ctx context.Context) ([]string, error) {
	return s.catalog.Templates(ctx)
}

// Template returns the named template.
func (s *Service) Template(ctx context.Context, name string) (*domain.Template, error) {
	return s.catalog.Template(ctx, name)
}

// update runs fn on the stored machine under its lock and publishes what changed.
func (s *Service) update(ctx context.Context, id string, fn func(context.Context, *domain.Machine) error) (*domain.Machine, error) {
	var before *domain.Machine
	m, err := s.sessions.Update(ctx, id, func(ctx context.Context, m *domain.Machine) error {
		before = m.Snapshot()
		return fn(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	s.streams.Publish(domain.Diff(before, m))
	return m, nil
}

func (s *Service) restore(m *domain.Machine) *runtime.Engine {
	hooks := s.hooks
	if s.metrics != nil {
		hooks = s.metrics.Hooks().Merge(hooks)
	}
	return runtime.Restore(m,
		runtime.WithHooks(hooks),
		runtime.WithLogger(s.logger),
		runtime.WithClock(s.now),
	)
}

// start opens a span for op and returns the function closing it.
// The closing function also records the operation metric.
func (s *Service) start(ctx context.Context, op, id string) (context.Context, func(error)) {
	ctx, span := s.tracer.Start(ctx, "turing."+op)
	if id != "" {
		span.SetAttributes(attribute.String("turing.machine_id", id))
	}
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		if s.metrics != nil {
			s.metrics.ObserveOperation(op, err)
		}
	}
}
