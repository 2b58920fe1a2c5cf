// Package workflow turns workflow files into registries and runs them.
package workflow

import (
	"context"
	"fmt"

	"github.com/vinigracindo/database-as-a-service/internal/config"
	"github.com/vinigracindo/database-as-a-service/internal/engine"
	"github.com/vinigracindo/database-as-a-service/internal/logger"
	"github.com/vinigracindo/database-as-a-service/internal/model"
	"github.com/vinigracindo/database-as-a-service/internal/shell"
	"github.com/vinigracindo/database-as-a-service/internal/step"
	"github.com/vinigracindo/database-as-a-service/internal/steps"
	"github.com/vinigracindo/database-as-a-service/internal/steps/command"
	"github.com/vinigracindo/database-as-a-service/internal/steps/volume"
	dbaaserrors "github.com/vinigracindo/database-as-a-service/pkg/errors"
)

// Service coordinates loading, wiring and running workflows.
type Service struct {
	shell      shell.Runner
	logger     *logger.Logger
	runnerOpts []engine.Option
}

// NewService constructs a workflow service executing scripts through sh.
func NewService(sh shell.Runner, log *logger.Logger, opts ...engine.Option) *Service {
	return &Service{shell: sh, logger: log, runnerOpts: opts}
}

// Prepared is a validated workflow ready to run.
type Prepared struct {
	Path     string
	Config   *config.Config
	Registry *step.Registry
	Steps    []model.StepID
}

// Prepare loads a workflow file and wires its steps.
func (s *Service) Prepare(path string) (*Prepared, error) {
	cfg, err := config.ParseConfig(path)
	if err != nil {
		return nil, err
	}
	return s.PrepareConfig(path, cfg)
}

// PrepareConfig wires an already parsed workflow.
func (s *Service) PrepareConfig(path string, cfg *config.Config) (*Prepared, error) {
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	reg, err := s.BuildRegistry(cfg)
	if err != nil {
		return nil, err
	}

	ids := make([]model.StepID, 0, len(cfg.Steps))
	for _, id := range cfg.StepIDs() {
		ids = append(ids, model.StepID(id))
	}
	if err := reg.Validate(ids); err != nil {
		return nil, err
	}

	return &Prepared{Path: path, Config: cfg, Registry: reg, Steps: ids}, nil
}

// BuildRegistry registers one factory per workflow step.
func (s *Service) BuildRegistry(cfg *config.Config) (*step.Registry, error) {
	reg := step.NewRegistry(s.logger)
	def := cfg.Settings.DefaultTimeout()

	for i, sc := range cfg.Steps {
		var factory step.Factory
		stepLog := s.logger.With("step", sc.ID)

		switch sc.Type {
		case config.TypeCommand:
			factory = command.Factory(command.Config{
				ID:      model.StepID(sc.ID),
				Label:   sc.Name,
				Do:      sc.Do,
				Undo:    sc.Undo,
				Host:    sc.Host,
				Timeout: sc.TimeoutOr(def),
			}, s.shell, stepLog)
		case config.TypeUpdateFstab:
			factory = volume.Factory(s.shell, sc.Fstab, stepLog)
		default:
			return nil, dbaaserrors.NewValidationError(fmt.Sprintf("steps[%d].type", i), fmt.Sprintf("unknown step type %q", sc.Type), nil)
		}

		if err := reg.Register(model.StepID(sc.ID), factory); err != nil {
			return nil, dbaaserrors.NewValidationError(fmt.Sprintf("steps[%d].id", i), err.Error(), err)
		}
	}
	return reg, nil
}

// BuildPayload seeds a fresh payload from the workflow's payload section.
func BuildPayload(cfg *config.Config) *model.Payload {
	data := model.NewPayload()
	if cfg == nil {
		return data
	}

	p := cfg.Payload
	if p.Host != "" {
		model.Set(data, steps.HostKey, p.Host)
	}
	if p.Volume != nil {
		model.Set(data, volume.VolumeKey, volume.Volume{NFSPath: p.Volume.NFSPath})
	}
	if p.OldVolume != nil {
		model.Set(data, volume.OldVolumeKey, volume.Volume{NFSPath: p.OldVolume.NFSPath})
	}
	if len(p.Vars) > 0 {
		vars := make(map[string]string, len(p.Vars))
		for k, v := range p.Vars {
			vars[k] = v
		}
		model.Set(data, steps.VarsKey, vars)
	}
	return data
}

// Request configures one run.
type Request struct {
	Prepared *Prepared
	Task     engine.TaskHandle
}

// Execute runs a prepared workflow. The error is non-nil only for an invalid
// request; workflow failures are reported through the result.
func (s *Service) Execute(ctx context.Context, req Request) (*model.Result, error) {
	if req.Prepared == nil || req.Prepared.Registry == nil {
		return nil, fmt.Errorf("workflow is not prepared")
	}

	log := s.logger.With("workflow", req.Prepared.Config.Name)
	runner := engine.NewRunner(req.Prepared.Registry, log, s.runnerOpts...)

	log.Info(fmt.Sprintf("starting workflow with %d steps", len(req.Prepared.Steps)))
	res := runner.Run(ctx, req.Prepared.Steps, BuildPayload(req.Prepared.Config), req.Task)
	log.With("status", res.Status.String()).Info("workflow finished")
	return res, nil
}

// Describe lists the prepared steps in run order with their labels.
func (p *Prepared) Describe() []step.Description {
	out := make([]step.Description, 0, len(p.Steps))
	for _, id := range p.Steps {
		s, err := p.Registry.Resolve(id)
		desc := step.Description{ID: id, Err: err}
		if err == nil {
			desc.Label = s.String()
		}
		out = append(out, desc)
	}
	return out
}
