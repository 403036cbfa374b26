package quotations

import (
	"fmt"

	"github.com/oris-services/servicedesk/internal/platform/httpx"
)

var (
	// ErrNotFound indicates the quotation does not exist.
	ErrNotFound = fmt.Errorf("%w: quotation", httpx.ErrNotFound)
	// ErrInvalidStatus indicates an unknown target status.
	ErrInvalidStatus = fmt.Errorf("%w: unknown quotation status", httpx.ErrValidation)
	// ErrAlreadyAccepted is the re-acceptance signal. Inventory is never touched twice.
	ErrAlreadyAccepted = fmt.Errorf("%w: quotation already accepted", httpx.ErrConflict)
	// ErrImmutable guards edits and transitions of an accepted quotation.
	ErrImmutable = fmt.Errorf("%w: accepted quotation cannot be changed", httpx.ErrConflict)
	// ErrForbiddenTransition is returned by the transition policy.
	ErrForbiddenTransition = fmt.Errorf("%w: not allowed to change quotation status", httpx.ErrForbidden)
)
