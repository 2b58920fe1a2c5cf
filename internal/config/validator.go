package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	dbaaserrors "github.com/vinigracindo/database-as-a-service/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	versionPattern = regexp.MustCompile(`^\d+\.\d+(?:\.\d+)?$`)
	stepIDPattern  = regexp.MustCompile(`^[a-z0-9_.]+$`)
)

// validatorInstance configures and returns the shared validator instance used across the config package.
func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("version", func(fl validator.FieldLevel) bool {
			return versionPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("step_id", func(fl validator.FieldLevel) bool {
			return stepIDPattern.MatchString(fl.Field().String())
		})

		validateInst = v
	})

	return validateInst
}

// ValidateConfig performs structural and cross-field validation on a
// workflow, reporting every problem it finds.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return dbaaserrors.NewValidationError("config", "configuration is nil", nil)
	}

	var problems dbaaserrors.ValidationErrors
	if err := validatorInstance().Struct(cfg); err != nil {
		problems = append(problems, convertValidationErrors(err)...)
	}

	seen := make(map[string]int, len(cfg.Steps))
	needsVolumes := false
	for i, step := range cfg.Steps {
		if first, exists := seen[step.ID]; exists && step.ID != "" {
			problems = append(problems, &dbaaserrors.ValidationError{
				Field:   fieldForStep(i, "id"),
				Message: fmt.Sprintf("duplicate step id %q (first used by steps[%d])", step.ID, first),
			})
			continue
		}
		seen[step.ID] = i

		switch step.Type {
		case TypeCommand:
			if strings.TrimSpace(step.Do) == "" {
				problems = append(problems, &dbaaserrors.ValidationError{
					Field:   fieldForStep(i, "do"),
					Message: "is required for command steps",
				})
			}
		case TypeUpdateFstab:
			needsVolumes = true
			if step.Do != "" || step.Undo != "" {
				problems = append(problems, &dbaaserrors.ValidationError{
					Field:   fieldForStep(i, "do"),
					Message: "update_fstab steps do not take scripts",
				})
			}
		}
	}

	if needsVolumes {
		if cfg.Payload.Host == "" {
			problems = append(problems, &dbaaserrors.ValidationError{Field: "payload.host", Message: "is required by update_fstab steps"})
		}
		if cfg.Payload.Volume == nil {
			problems = append(problems, &dbaaserrors.ValidationError{Field: "payload.volume", Message: "is required by update_fstab steps"})
		}
		if cfg.Payload.OldVolume == nil {
			problems = append(problems, &dbaaserrors.ValidationError{Field: "payload.old_volume", Message: "is required by update_fstab steps"})
		}
	}

	switch len(problems) {
	case 0:
		return nil
	case 1:
		return problems[0]
	default:
		return problems
	}
}

// convertValidationErrors normalizes validator errors into workflow validation errors.
func convertValidationErrors(err error) []*dbaaserrors.ValidationError {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return []*dbaaserrors.ValidationError{{Field: "config", Message: err.Error(), Err: err}}
	}

	out := make([]*dbaaserrors.ValidationError, 0, len(ves))
	for _, fe := range ves {
		field := yamlishFieldName(fe)
		out = append(out, &dbaaserrors.ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s failed validation for tag '%s'", field, fe.Tag()),
			Err:     fe,
		})
	}
	return out
}

var fieldNames = map[string]string{
	"oldvolume": "old_volume",
	"nfspath":   "nfs_path",
}

func yamlishFieldName(fe validator.FieldError) string {
	parts := strings.Split(fe.StructNamespace(), ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	lowered := make([]string, 0, len(parts))
	for _, part := range parts {
		name := strings.ToLower(part)
		if mapped, ok := fieldNames[name]; ok {
			name = mapped
		}
		lowered = append(lowered, name)
	}
	return strings.Join(lowered, ".")
}

func fieldForStep(index int, field string) string {
	return fmt.Sprintf("steps[%d].%s", index, field)
}
