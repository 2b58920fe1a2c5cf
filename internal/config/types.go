package config

import (
	"time"

	"gopkg.in/yaml.v3"
)

// Step types understood by the workflow service.
const (
	TypeCommand     = "command"
	TypeUpdateFstab = "update_fstab"
)

// DefaultTimeout bounds a command step when neither the step nor the
// settings set a timeout.
const DefaultTimeout = 5 * time.Minute

// Config is one workflow definition file.
type Config struct {
	Version     string   `yaml:"version" validate:"required,version"`
	Name        string   `yaml:"name" validate:"required,min=1,max=100"`
	Description string   `yaml:"description,omitempty"`
	Settings    Settings `yaml:"settings,omitempty"`
	Payload     Payload  `yaml:"payload,omitempty"`
	Steps       []Step   `yaml:"steps" validate:"required,min=1,dive"`
}

// Settings holds global execution parameters.
type Settings struct {
	// Timeout is the default command timeout in seconds.
	Timeout int    `yaml:"timeout,omitempty" validate:"omitempty,min=1,max=360000"`
	History string `yaml:"history,omitempty"`
}

// Payload seeds the values shared by every step of a run.
type Payload struct {
	Host      string            `yaml:"host,omitempty" validate:"omitempty,hostname_rfc1123|ip"`
	Volume    *Volume           `yaml:"volume,omitempty"`
	OldVolume *Volume           `yaml:"old_volume,omitempty"`
	Vars      map[string]string `yaml:"vars,omitempty"`
}

// Volume names an NFS export.
type Volume struct {
	NFSPath string `yaml:"nfs_path" validate:"required,excludesall='"`
}

// Step is one entry of the workflow, run in file order.
type Step struct {
	ID      string `yaml:"id" validate:"required,step_id"`
	Type    string `yaml:"type" validate:"required,oneof=command update_fstab"`
	Name    string `yaml:"name,omitempty" validate:"max=200"`
	Do      string `yaml:"do,omitempty"`
	Undo    string `yaml:"undo,omitempty"`
	Host    string `yaml:"host,omitempty"`
	Timeout int    `yaml:"timeout,omitempty" validate:"omitempty,min=1,max=360000"`
	Fstab   string `yaml:"fstab,omitempty" validate:"omitempty,startswith=/"`
}

// UnmarshalYAML defaults an omitted step type to command.
func (s *Step) UnmarshalYAML(value *yaml.Node) error {
	type rawStep Step
	var raw rawStep
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*s = Step(raw)
	if s.Type == "" && !hasYAMLKey(value, "type") {
		s.Type = TypeCommand
	}
	return nil
}

// StepIDs lists the step identifiers in run order.
func (c *Config) StepIDs() []string {
	ids := make([]string, 0, len(c.Steps))
	for _, step := range c.Steps {
		ids = append(ids, step.ID)
	}
	return ids
}

// DefaultTimeout returns the configured default command timeout.
func (s Settings) DefaultTimeout() time.Duration {
	if s.Timeout > 0 {
		return time.Duration(s.Timeout) * time.Second
	}
	return DefaultTimeout
}

// TimeoutOr returns the step's own timeout, falling back to def.
func (s Step) TimeoutOr(def time.Duration) time.Duration {
	if s.Timeout > 0 {
		return time.Duration(s.Timeout) * time.Second
	}
	return def
}

func hasYAMLKey(node *yaml.Node, key string) bool {
	if node == nil || node.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return true
		}
	}
	return false
}
