package shared

import (
	"fmt"

	"github.com/oris-services/servicedesk/internal/platform/httpx"
)

var (
	ErrNotFound  = fmt.Errorf("%w: catalog entry not found", httpx.ErrNotFound)
	ErrInvalidID = fmt.Errorf("%w: invalid ID", httpx.ErrValidation)
)
