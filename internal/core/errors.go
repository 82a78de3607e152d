package core

import (
	"errors"
	"fmt"

	"hbnb/pkg/domain"
)

// ErrMissingID is returned when a lookup is attempted without an instance id.
var ErrMissingID = errors.New("instance id missing")

// ErrNotFound is returned when no record is registered under the requested key.
type ErrNotFound struct {
	Kind domain.Kind
	ID   string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}
