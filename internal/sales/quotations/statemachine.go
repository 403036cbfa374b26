package quotations

// Effect is the side effect a transition requires.
type Effect int

const (
	// EffectNone leaves the quotation untouched.
	EffectNone Effect = iota
	// EffectUpdate persists the new status.
	EffectUpdate
	// EffectReserve decrements inventory, then persists the new status.
	EffectReserve
)

// Transition decides whether from → to is allowed and what it entails.
//
//	pending  → accepted  reserve
//	rejected → accepted  reserve
//	pending  ↔ rejected  update
//	x → x                no-op (pending, rejected)
//	accepted → accepted  ErrAlreadyAccepted
//	accepted → other     ErrImmutable
func Transition(from, to Status) (Effect, error) {
	if !to.Valid() || !from.Valid() {
		return EffectNone, ErrInvalidStatus
	}
	if from == StatusAccepted {
		if to == StatusAccepted {
			return EffectNone, ErrAlreadyAccepted
		}
		return EffectNone, ErrImmutable
	}
	if from == to {
		return EffectNone, nil
	}
	if to == StatusAccepted {
		return EffectReserve, nil
	}
	return EffectUpdate, nil
}
