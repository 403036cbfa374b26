package tickets

import (
	"errors"
	"fmt"

	"github.com/oris-services/servicedesk/internal/platform/httpx"
)

var (
	ErrNotFound          = fmt.Errorf("%w: ticket not found", httpx.ErrNotFound)
	ErrRequestNotFound   = fmt.Errorf("%w: status request not found", httpx.ErrNotFound)
	ErrClosed            = fmt.Errorf("%w: ticket is closed", httpx.ErrConflict)
	ErrNotAssigned       = fmt.Errorf("%w: ticket is not assigned to you", httpx.ErrForbidden)
	ErrPendingRequest    = fmt.Errorf("%w: ticket already has a pending status request", httpx.ErrConflict)
	ErrAlreadyResolved   = fmt.Errorf("%w: status request already resolved", httpx.ErrConflict)
	ErrInvalidTechnician = fmt.Errorf("%w: technician not found or inactive", httpx.ErrValidation)
	ErrEvidenceTooLarge  = fmt.Errorf("%w: evidence exceeds the upload limit", httpx.ErrValidation)

	// errDuplicateCase signals a case number collision; Submit retries with a new one.
	errDuplicateCase = errors.New("tickets: duplicate case number")
)
