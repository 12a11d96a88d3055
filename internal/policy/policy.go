// Package policy defines the closed enumerations that configure a review
// platform: how reviews are validated, which helpfulness votes agents may
// cast, and how the per-tick sample is selected.
package policy

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknown is wrapped by every UnknownError.
var ErrUnknown = errors.New("unknown policy")

// UnknownError reports a policy name or value outside its enumeration.
type UnknownError struct {
	Kind    string
	Value   string
	Allowed []string
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("unknown %s policy %q (valid: %s)", e.Kind, e.Value, strings.Join(e.Allowed, ", "))
}

func (e *UnknownError) Unwrap() error { return ErrUnknown }

// #region validation

// Validation gates author-history visibility and interaction-time sampling.
type Validation int

const (
	ValidatedOnly Validation = iota + 1
	NoValidation
)

var validationNames = map[Validation]string{
	ValidatedOnly: "validated-only",
	NoValidation:  "none",
}

var validationAliases = map[string]Validation{
	"validated-only": ValidatedOnly,
	"only-validated": ValidatedOnly,
	"validated":      ValidatedOnly,
	"none":           NoValidation,
}

// AllValidations lists every validation policy in declaration order.
func AllValidations() []Validation { return []Validation{ValidatedOnly, NoValidation} }

func (v Validation) String() string {
	if n, ok := validationNames[v]; ok {
		return n
	}
	return fmt.Sprintf("Validation(%d)", int(v))
}

// Valid reports whether v is a member of the enumeration.
func (v Validation) Valid() bool {
	_, ok := validationNames[v]
	return ok
}

// ParseValidation maps a name (or a legacy label such as "Only Validated")
// to a Validation.
func ParseValidation(s string) (Validation, error) {
	if v, ok := validationAliases[normalize(s)]; ok {
		return v, nil
	}
	return 0, &UnknownError{Kind: "validation", Value: s, Allowed: names(AllValidations())}
}

func (v Validation) MarshalText() ([]byte, error) {
	if !v.Valid() {
		return nil, &UnknownError{Kind: "validation", Value: v.String(), Allowed: names(AllValidations())}
	}
	return []byte(v.String()), nil
}

func (v *Validation) UnmarshalText(b []byte) error {
	parsed, err := ParseValidation(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// #endregion validation

// #region feedback

// Feedback gates which helpfulness votes an agent may cast.
type Feedback int

const (
	NoFeedback Feedback = iota + 1
	PositiveOnly
	Both
)

var feedbackNames = map[Feedback]string{
	NoFeedback:   "none",
	PositiveOnly: "positive-only",
	Both:         "both",
}

var feedbackAliases = map[string]Feedback{
	"none":          NoFeedback,
	"no-feedback":   NoFeedback,
	"positive-only": PositiveOnly,
	"positive":      PositiveOnly,
	"pos":           PositiveOnly,
	"both":          Both,
}

// AllFeedbacks lists every feedback policy in declaration order.
func AllFeedbacks() []Feedback { return []Feedback{NoFeedback, PositiveOnly, Both} }

func (f Feedback) String() string {
	if n, ok := feedbackNames[f]; ok {
		return n
	}
	return fmt.Sprintf("Feedback(%d)", int(f))
}

// Valid reports whether f is a member of the enumeration.
func (f Feedback) Valid() bool {
	_, ok := feedbackNames[f]
	return ok
}

// AllowsPositive reports whether positive votes may be cast.
func (f Feedback) AllowsPositive() bool { return f == PositiveOnly || f == Both }

// AllowsNegative reports whether negative votes may be cast.
func (f Feedback) AllowsNegative() bool { return f == Both }

// ParseFeedback maps a name (or a legacy label such as "No Feedback") to a
// Feedback.
func ParseFeedback(s string) (Feedback, error) {
	if f, ok := feedbackAliases[normalize(s)]; ok {
		return f, nil
	}
	return 0, &UnknownError{Kind: "feedback", Value: s, Allowed: names(AllFeedbacks())}
}

func (f Feedback) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, &UnknownError{Kind: "feedback", Value: f.String(), Allowed: names(AllFeedbacks())}
	}
	return []byte(f.String()), nil
}

func (f *Feedback) UnmarshalText(b []byte) error {
	parsed, err := ParseFeedback(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// #endregion feedback

// #region selection

// Selection determines which reviews form the per-tick sample.
type Selection int

const (
	Random Selection = iota + 1
	MostHelpful
	MostRecent
	BestQuality
)

var selectionNames = map[Selection]string{
	Random:      "random",
	MostHelpful: "most-helpful",
	MostRecent:  "most-recent",
	BestQuality: "best-quality",
}

var selectionAliases = map[string]Selection{
	"random":       Random,
	"most-helpful": MostHelpful,
	"most-recent":  MostRecent,
	"best-quality": BestQuality,
}

// AllSelections lists every selection policy in declaration order.
func AllSelections() []Selection { return []Selection{Random, MostHelpful, MostRecent, BestQuality} }

func (s Selection) String() string {
	if n, ok := selectionNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Selection(%d)", int(s))
}

// Valid reports whether s is a member of the enumeration.
func (s Selection) Valid() bool {
	_, ok := selectionNames[s]
	return ok
}

// Ranked reports whether the policy samples from a ranked view of history.
func (s Selection) Ranked() bool { return s == MostHelpful || s == BestQuality }

// ParseSelection maps a name (or a legacy label such as "Most Helpful") to a
// Selection.
func ParseSelection(s string) (Selection, error) {
	if sel, ok := selectionAliases[normalize(s)]; ok {
		return sel, nil
	}
	return 0, &UnknownError{Kind: "selection", Value: s, Allowed: names(AllSelections())}
}

func (s Selection) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, &UnknownError{Kind: "selection", Value: s.String(), Allowed: names(AllSelections())}
	}
	return []byte(s.String()), nil
}

func (s *Selection) UnmarshalText(b []byte) error {
	parsed, err := ParseSelection(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// #endregion selection

// #region helpers

// normalize lowercases and folds spaces and underscores into hyphens so
// "Most Helpful", "most_helpful" and "most-helpful" compare equal.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "-", "_", "-").Replace(s)
}

func names[T fmt.Stringer](vals []T) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = v.String()
	}
	return out
}

// #endregion helpers
