package quotations

import "github.com/oris-services/servicedesk/internal/shared"

// AuthorizeTransition is the only place deciding who may move a quotation
// between statuses. Accepting also consumes stock, so it needs inventory rights.
func AuthorizeTransition(actor shared.Actor, from, to Status) error {
	if actor.ID == 0 || !actor.Can(shared.PermQuotationTransition) {
		return ErrForbiddenTransition
	}
	if to == StatusAccepted && from != StatusAccepted && !actor.Can(shared.PermInventoryEdit) {
		return ErrForbiddenTransition
	}
	return nil
}
