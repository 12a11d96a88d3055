package platform

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jamumford/Online-Product-Reviews/internal/policy"
)

// #region config

// Config is everything a Platform needs at construction.
type Config struct {
	// InviteThreshold is the lower bound on interaction-time sampling for
	// validated reviews, as a share of the time needed to test the product.
	InviteThreshold float64 `json:"invite_threshold" yaml:"invite_threshold" validate:"gte=0,lte=1"`

	Validation policy.Validation `json:"validation" yaml:"validation" validate:"policy"`
	Feedback   policy.Feedback   `json:"feedback" yaml:"feedback" validate:"policy"`
	Selection  policy.Selection  `json:"selection" yaml:"selection" validate:"policy"`

	GroundTruth int `json:"ground_truth" yaml:"ground_truth" validate:"oneof=-1 1"`
	SampleSize  int `json:"sample_size" yaml:"sample_size" validate:"gt=0"`

	// MutationRate is the per-tick probability that a new review is
	// authored instead of the sample being voted on.
	MutationRate float64 `json:"mutation_rate" yaml:"mutation_rate" validate:"gte=0,lte=1"`

	// DeceptionRisk is the CQ2 penalty applied to unvalidated reviews.
	DeceptionRisk float64 `json:"deception_risk" yaml:"deception_risk" validate:"gte=0,lte=1"`

	Seed int64 `json:"seed" yaml:"seed"`

	// PersistentOrder keeps the ranked order produced by most-helpful and
	// best-quality selection between ticks, so ties break by the previous
	// ranking instead of by creation order.
	PersistentOrder bool `json:"persistent_order,omitempty" yaml:"persistent_order,omitempty"`
}

// DefaultConfig returns the parameters of the reference experiment.
func DefaultConfig() Config {
	return Config{
		InviteThreshold: 0.1,
		Validation:      policy.ValidatedOnly,
		Feedback:        policy.PositiveOnly,
		Selection:       policy.BestQuality,
		GroundTruth:     1,
		SampleSize:      5,
		MutationRate:    0.05,
		DeceptionRisk:   0.2,
		Seed:            42,
	}
}

// #endregion config

// #region errors

// ErrConfig is wrapped by every ConfigError.
var ErrConfig = errors.New("invalid platform configuration")

// ConfigError names the first configuration field that failed validation.
type ConfigError struct {
	Field string
	Value string
	Rule  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid platform configuration: %s=%s violates %s", e.Field, e.Value, e.Rule)
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

// #endregion errors

// #region validate

var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	configValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = configValidate.RegisterValidation("policy", validatePolicy)
}

// validatePolicy accepts any enumeration that knows its own members.
func validatePolicy(fl validator.FieldLevel) bool {
	v, ok := fl.Field().Interface().(interface{ Valid() bool })
	return ok && v.Valid()
}

// Validate checks ranges and enumerations. It returns a *ConfigError.
func (c Config) Validate() error {
	err := configValidate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		return &ConfigError{Field: fe.Field(), Value: fmt.Sprint(fe.Value()), Rule: rule}
	}
	return fmt.Errorf("%w: %v", ErrConfig, err)
}

// #endregion validate
