// Package jobs loads YAML manifests describing batches of frame tool work
// and runs them in order against an executor.
package jobs

import (
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"framebridge/internal/services"
	"framebridge/internal/services/frametool"
)

// Kind selects the frame tool subcommand a job runs.
type Kind string

const (
	KindCompress Kind = "compress"
	KindExtract  Kind = "extract"
)

// Manifest is a named, ordered list of jobs.
type Manifest struct {
	Name            string `yaml:"name" validate:"required"`
	ContinueOnError bool   `yaml:"continue_on_error"`
	Jobs            []Job  `yaml:"jobs" validate:"min=1"`
}

// Job is one frame tool invocation. Exactly the options block matching Kind
// is used.
type Job struct {
	Name     string                              `yaml:"name" validate:"required,job_name"`
	Kind     Kind                                `yaml:"kind" validate:"required,oneof=compress extract"`
	Compress *frametool.BatchCompressOptions     `yaml:"compress,omitempty"`
	Extract  *frametool.ExtractFirstFrameOptions `yaml:"extract,omitempty"`
}

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	jobNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
	yamlLineRegex  = regexp.MustCompile(`line (\d+)`)
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
			if name == "" || name == "-" {
				return strings.ToLower(field.Name)
			}
			return name
		})
		_ = v.RegisterValidation("job_name", func(fl validator.FieldLevel) bool {
			return jobNamePattern.MatchString(fl.Field().String())
		})
		validateInst = v
	})
	return validateInst
}

// LoadFile reads and validates a manifest.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Load parses and validates manifest YAML.
func Load(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		if line := yamlLineRegex.FindStringSubmatch(err.Error()); line != nil {
			return nil, services.Wrap(services.ErrValidation, "jobs", "parse", "invalid YAML near line "+line[1], err)
		}
		return nil, services.Wrap(services.ErrValidation, "jobs", "parse", "invalid YAML", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the manifest and every job.
func (m *Manifest) Validate() error {
	v := validatorInstance()
	if err := v.Struct(m); err != nil {
		return convertValidationError("manifest", err)
	}
	seen := make(map[string]int, len(m.Jobs))
	for i, job := range m.Jobs {
		field := fmt.Sprintf("jobs[%d]", i)
		if err := validateJob(job, field); err != nil {
			return err
		}
		if prev, dup := seen[job.Name]; dup {
			return services.Wrap(services.ErrValidation, "jobs", field+".name",
				fmt.Sprintf("duplicate job name %q (also jobs[%d])", job.Name, prev), nil)
		}
		seen[job.Name] = i
	}
	return nil
}

func validateJob(job Job, field string) error {
	v := validatorInstance()
	if err := v.Struct(job); err != nil {
		return convertValidationError(field, err)
	}
	switch job.Kind {
	case KindCompress:
		if job.Compress == nil {
			return services.Wrap(services.ErrValidation, "jobs", field, "compress options are required", nil)
		}
		if job.Extract != nil {
			return services.Wrap(services.ErrValidation, "jobs", field, "extract options are not allowed for a compress job", nil)
		}
	case KindExtract:
		if job.Extract == nil {
			return services.Wrap(services.ErrValidation, "jobs", field, "extract options are required", nil)
		}
		if job.Compress != nil {
			return services.Wrap(services.ErrValidation, "jobs", field, "compress options are not allowed for an extract job", nil)
		}
	}
	return nil
}

func convertValidationError(scope string, err error) error {
	if ves, ok := err.(validator.ValidationErrors); ok && len(ves) > 0 {
		fe := ves[0]
		path := fe.Namespace()
		if idx := strings.Index(path, "."); idx >= 0 {
			path = path[idx+1:]
		}
		return services.Wrap(services.ErrValidation, "jobs", scope,
			fmt.Sprintf("%s failed validation for tag '%s'", path, fe.Tag()), nil)
	}
	return services.Wrap(services.ErrValidation, "jobs", scope, "invalid", err)
}
