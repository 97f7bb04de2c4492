package synthesis

import (
	"errors"
	"fmt"
)

// InvalidIdentifierError is returned when a deployment id contains a dash.
// Ids are joined into child names and label values with dashes, so a dash in
// an id would make names ambiguous.
type InvalidIdentifierError struct {
	ID string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("deployment ID must not contain dashes (%s)", e.ID)
}

// IsInvalidIdentifier reports whether err is or wraps an InvalidIdentifierError.
func IsInvalidIdentifier(err error) bool {
	var target *InvalidIdentifierError
	return errors.As(err, &target)
}
