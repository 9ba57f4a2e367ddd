package templates

import (
	"errors"
	"fmt"
)

var (
	// ErrTemplateNotFound indicates no override level has the file.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrInvalidScope indicates a team or language that is not a single
	// path segment.
	ErrInvalidScope = errors.New("invalid template scope")
)

// TemplateNotFoundError reports which lookup failed.
type TemplateNotFoundError struct {
	File     string
	Team     string
	Language string
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("%s: %s for team %q, language %q", ErrTemplateNotFound, e.File, e.Team, e.Language)
}

// Is lets errors.Is match ErrTemplateNotFound.
func (e *TemplateNotFoundError) Is(target error) bool {
	return target == ErrTemplateNotFound
}
