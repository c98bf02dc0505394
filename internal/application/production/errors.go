package production

import (
	"fmt"

	"github.com/andrescamacho/rts-production/internal/domain/production"
)

// ErrFactoryNotFound indicates no live factory has the id
type ErrFactoryNotFound struct {
	FactoryID production.FactoryID
}

func (e *ErrFactoryNotFound) Error() string {
	return fmt.Sprintf("factory not found: %d", e.FactoryID)
}

// ErrDuplicateFactory indicates a factory id is already registered
type ErrDuplicateFactory struct {
	FactoryID production.FactoryID
}

func (e *ErrDuplicateFactory) Error() string {
	return fmt.Sprintf("factory already registered: %d", e.FactoryID)
}
