// Package api is the embedding surface for driving full sampling runs from
// other Go programs. A Session owns one configured model/run pair; nothing is
// process-global, so callers may hold several sessions at once.
package api

import (
	"context"

	"github.com/pkg/errors"

	"github.com/kcarline/hammock/data"
	"github.com/kcarline/hammock/logging"
	"github.com/kcarline/hammock/model"
	"github.com/kcarline/hammock/sampler"
	"github.com/kcarline/hammock/writer"
)

// Session binds a constructed model to a validated run configuration. Create
// one with New (registry lookup) or NewWithModel (caller-supplied model), run
// it once or many times, then Close it.
type Session struct {
	model  model.Model
	args   sampler.Args
	outDir string
	closed bool
}

// New builds a session for a registered model name. The data file is read
// once here; an empty path means the model gets an empty data context.
func New(modelName, dataFile string, args sampler.Args) (*Session, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}

	ctx, err := data.FromFile(dataFile)
	if err != nil {
		return nil, err
	}
	m, err := model.Lookup(modelName, ctx)
	if err != nil {
		return nil, err
	}

	args.DataFile = dataFile
	return NewWithModel(m, args)
}

// NewWithModel builds a session around a caller-supplied model. This is the
// entry point for embedding programs with models outside the registry.
func NewWithModel(m model.Model, args sampler.Args) (*Session, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.New("Session needs a model")
	}
	if m.NumUnconstrainedParams() == 0 {
		return nil, errors.Errorf("Model %s has no unconstrained parameters to sample", m.Name())
	}

	return &Session{model: m, args: args}, nil
}

// Model returns the session's model.
func (s *Session) Model() model.Model {
	return s.model
}

// OutputDir returns where the most recent Run wrote its files. Empty until
// the first Run.
func (s *Session) OutputDir() string {
	return s.outDir
}

// Run executes the configured chains, writing all output files under the
// configured directory (or a fresh temp directory when none was configured).
// A nil logger discards log output; a nil context means no interruption.
func (s *Session) Run(ctx context.Context, log logging.Logger) error {
	if s.closed {
		return errors.New("Session is closed")
	}
	if log == nil {
		log = logging.Nop()
	}

	dir := s.args.OutputDir
	if dir == "" {
		var err error
		dir, err = writer.TempOutputDir()
		if err != nil {
			return err
		}
	}
	s.outDir = dir

	sets, err := writer.NewChainSets(writer.Options{
		Dir:             dir,
		ModelName:       s.model.Name(),
		NumChains:       s.args.NumChains,
		CommentPrefix:   "#",
		SaveStartParams: s.args.SaveStartParams,
		SaveDiagnostics: s.args.SaveDiagnostics,
		SaveMetric:      s.args.SaveMetric,
	})
	if err != nil {
		return err
	}

	runErr := sampler.RunChains(ctx, s.model, &s.args, sets, log)
	for i := range sets {
		if cerr := sets[i].Close(); cerr != nil && runErr == nil {
			runErr = errors.Wrapf(cerr, "Chain %d output close failed", i+1)
		}
	}
	return runErr
}

// RunBuffered executes the configured chains entirely in memory and returns
// one sample buffer per chain. File-output options are ignored.
func (s *Session) RunBuffered(ctx context.Context, log logging.Logger) ([]*writer.Buffer, error) {
	if s.closed {
		return nil, errors.New("Session is closed")
	}
	if log == nil {
		log = logging.Nop()
	}

	bufs := make([]*writer.Buffer, s.args.NumChains)
	sets := make([]writer.ChainSet, s.args.NumChains)
	for i := range sets {
		bufs[i] = &writer.Buffer{}
		sets[i] = writer.ChainSet{Samples: bufs[i]}
	}

	if err := sampler.RunChains(ctx, s.model, &s.args, sets, log); err != nil {
		return nil, err
	}
	return bufs, nil
}

// Close releases the session. Further Run calls fail; Close is idempotent.
func (s *Session) Close() error {
	s.closed = true
	return nil
}
