package manifest

import (
	"errors"
	"fmt"

	"github.com/cameronsjo/manman/internal/envelope"
	"github.com/cameronsjo/manman/internal/secrets"
	"github.com/cameronsjo/manman/internal/templates"
)

var (
	// ErrImproperConfig indicates a request that fails validation.
	ErrImproperConfig = errors.New("improper configuration")

	// ErrReplicasWithHPA indicates fixed replicas and an autoscaler on the
	// same workload.
	ErrReplicasWithHPA = errors.New("replicas set together with hpa")

	// ErrScalingUnspecified indicates a workload with neither replicas nor
	// an autoscaler.
	ErrScalingUnspecified = errors.New("no replicas or hpa")

	// ErrRender indicates a template that failed to parse or execute.
	ErrRender = errors.New("render failed")
)

// Scaling messages shown to users.
const (
	replicasWithHPAMessage = "Incompatible configuration: When using HPA, you cannot manually set the number of replicas. " +
		"Please remove the replicas setting or disable HPA."
	scalingUnspecifiedMessage = "Insufficient scaling information: You need to either specify a fixed number of replicas " +
		"or configure HPA. Please add one of these parameters to your configuration."
)

// ConfigError describes one invalid field of a request.
type ConfigError struct {
	// Field is the dotted path of the field, e.g. cronjobs[0].schedule.
	Field string

	// Reason is a human-readable explanation.
	Reason string

	// Err optionally narrows the failure, e.g. ErrReplicasWithHPA.
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Unwrap exposes ErrImproperConfig and the narrower cause, if any.
func (e *ConfigError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrImproperConfig}
	}
	return []error{ErrImproperConfig, e.Err}
}

// RenderError reports a template that could not be rendered.
type RenderError struct {
	Template string
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Template, e.Err)
}

// Unwrap exposes ErrRender and the template engine error.
func (e *RenderError) Unwrap() []error {
	return []error{ErrRender, e.Err}
}

// ConfigErrors returns every ConfigError joined into err.
func ConfigErrors(err error) []*ConfigError {
	var out []*ConfigError
	var walk func(error)
	walk = func(err error) {
		if err == nil {
			return
		}
		if ce, ok := err.(*ConfigError); ok {
			out = append(out, ce)
			return
		}
		switch u := err.(type) {
		case interface{ Unwrap() []error }:
			for _, e := range u.Unwrap() {
				walk(e)
			}
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		}
	}
	walk(err)
	return out
}

// Kind classifies an error for the caller.
type Kind int

// Error kinds.
const (
	KindOK Kind = iota
	KindNotFound
	KindBadInput
	KindInternal
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindNotFound:
		return "not-found"
	case KindBadInput:
		return "bad-input"
	default:
		return "internal"
	}
}

// badInput lists the errors caused by what the caller sent.
var badInput = []error{
	ErrImproperConfig,
	envelope.ErrInvalidKeyLength,
	envelope.ErrInvalidKeyFormat,
	envelope.ErrDecryption,
	secrets.ErrMissingKey,
	secrets.ErrKeyNotFound,
	templates.ErrInvalidScope,
}

// KindOf classifies err. Missing templates are not-found, invalid
// requests and keys are bad input, everything else is internal.
func KindOf(err error) Kind {
	if err == nil {
		return KindOK
	}
	if errors.Is(err, templates.ErrTemplateNotFound) {
		return KindNotFound
	}
	for _, target := range badInput {
		if errors.Is(err, target) {
			return KindBadInput
		}
	}
	return KindInternal
}
