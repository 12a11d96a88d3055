// Package experiment drives platforms through fixed tick horizons, sweeps a
// single policy variable across runs, and renders the resulting series.
package experiment

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jamumford/Online-Product-Reviews/internal/platform"
	"github.com/jamumford/Online-Product-Reviews/internal/policy"
)

// #region types

// Variable names the configuration field a sweep varies.
type Variable string

const (
	VarSelection  Variable = "selection"
	VarFeedback   Variable = "feedback"
	VarValidation Variable = "validation"
	VarSampleSize Variable = "sample-size"
)

// SweepSpec lists the values one variable takes across a sweep.
type SweepSpec struct {
	Variable Variable `yaml:"variable" json:"variable" validate:"required,oneof=selection feedback validation sample-size"`
	Values   []string `yaml:"values" json:"values" validate:"min=1,unique,dive,required"`
}

// Experiment is the YAML description of a run or a sweep.
type Experiment struct {
	Name       string          `yaml:"name" json:"name" validate:"required"`
	Ticks      int             `yaml:"ticks" json:"ticks" validate:"gt=0"`
	AuditEvery int             `yaml:"audit_every" json:"audit_every" validate:"gte=0"`
	Platform   platform.Config `yaml:"platform" json:"platform" validate:"-"`
	Sweep      *SweepSpec      `yaml:"sweep,omitempty" json:"sweep,omitempty"`
}

// RunSpec is one fully resolved run.
type RunSpec struct {
	RunID  string
	Label  string
	Ticks  int
	Config platform.Config
}

// #endregion types

// #region defaults

// Default returns the reference experiment: the reference platform
// parameters over 10^4 ticks with an audit every 1000.
func Default() Experiment {
	return Experiment{
		Name:       "reference",
		Ticks:      10000,
		AuditEvery: 1000,
		Platform:   platform.DefaultConfig(),
	}
}

// #endregion defaults

// #region load

// Load reads an experiment from a YAML file. Fields the file omits keep the
// values of Default.
func Load(path string) (Experiment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Experiment{}, fmt.Errorf("read experiment %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates an experiment document.
func Parse(data []byte) (Experiment, error) {
	exp := Default()
	if err := yaml.Unmarshal(data, &exp); err != nil {
		return Experiment{}, fmt.Errorf("parse experiment: %w", err)
	}
	if err := exp.Validate(); err != nil {
		return Experiment{}, err
	}
	return exp, nil
}

// #endregion load

// #region validate

var expValidate *validator.Validate

func init() {
	expValidate = validator.New()
	expValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Validate checks the experiment, its platform configuration and every
// sweep value.
func (e Experiment) Validate() error {
	if err := expValidate.Struct(e); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid experiment: %s=%v violates %s", fe.Namespace(), fe.Value(), fe.Tag())
		}
		return fmt.Errorf("invalid experiment: %w", err)
	}
	if err := e.Platform.Validate(); err != nil {
		return fmt.Errorf("experiment %s: %w", e.Name, err)
	}
	if e.Sweep != nil {
		if _, err := e.RunSpecs(); err != nil {
			return err
		}
	}
	return nil
}

// #endregion validate

// #region run-specs

// RunSpecs resolves the experiment into runs. Without a sweep block it is a
// single run labelled with the experiment name; with one, every value gets
// its own run from the same seed.
func (e Experiment) RunSpecs() ([]RunSpec, error) {
	if e.Sweep == nil {
		return []RunSpec{{Label: e.Name, Ticks: e.Ticks, Config: e.Platform}}, nil
	}
	specs := make([]RunSpec, 0, len(e.Sweep.Values))
	seen := make(map[string]string, len(e.Sweep.Values))
	for _, v := range e.Sweep.Values {
		cfg, label, err := Apply(e.Platform, e.Sweep.Variable, v)
		if err != nil {
			return nil, fmt.Errorf("experiment %s: %w", e.Name, err)
		}
		if prev, dup := seen[label]; dup {
			return nil, fmt.Errorf("experiment %s: sweep values %q and %q are both %s", e.Name, prev, v, label)
		}
		seen[label] = v
		specs = append(specs, RunSpec{Label: label, Ticks: e.Ticks, Config: cfg})
	}
	return specs, nil
}

// Apply sets variable to value on a copy of base and returns it with the
// canonical label for the value.
func Apply(base platform.Config, variable Variable, value string) (platform.Config, string, error) {
	cfg := base
	switch variable {
	case VarSelection:
		s, err := policy.ParseSelection(value)
		if err != nil {
			return cfg, "", err
		}
		cfg.Selection = s
		return cfg, s.String(), cfg.Validate()
	case VarFeedback:
		f, err := policy.ParseFeedback(value)
		if err != nil {
			return cfg, "", err
		}
		cfg.Feedback = f
		return cfg, f.String(), cfg.Validate()
	case VarValidation:
		v, err := policy.ParseValidation(value)
		if err != nil {
			return cfg, "", err
		}
		cfg.Validation = v
		return cfg, v.String(), cfg.Validate()
	case VarSampleSize:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return cfg, "", fmt.Errorf("sample size %q: %w", value, err)
		}
		cfg.SampleSize = n
		return cfg, strconv.Itoa(n), cfg.Validate()
	}
	return cfg, "", fmt.Errorf("unknown sweep variable %q", variable)
}

// DefaultValues returns the values the reference sweeps use for variable.
func DefaultValues(variable Variable) []string {
	switch variable {
	case VarSelection:
		return names(policy.AllSelections())
	case VarFeedback:
		return names(policy.AllFeedbacks())
	case VarValidation:
		return names(policy.AllValidations())
	case VarSampleSize:
		return []string{"2", "5", "10", "20"}
	}
	return nil
}

func names[T fmt.Stringer](vs []T) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.String()
	}
	return out
}

// #endregion run-specs
