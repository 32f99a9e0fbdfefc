package templates

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCoolingDown is matched by CoolingDownError
	ErrCoolingDown = errors.New("templates: cooling down")
	// ErrTemplateNotFound is returned for an unknown template id
	ErrTemplateNotFound = errors.New("templates: template not found")
	// ErrInvalidSettings is returned for out-of-range settings
	ErrInvalidSettings = errors.New("templates: invalid settings")
)

// CoolingDownError reports a send attempted inside the cooldown window
type CoolingDownError struct {
	Remaining time.Duration
}

func (e *CoolingDownError) Error() string {
	return fmt.Sprintf("templates: cooling down for %s", e.Remaining)
}

func (e *CoolingDownError) Is(target error) bool {
	return target == ErrCoolingDown
}
