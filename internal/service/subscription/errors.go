package subscription

import "errors"

var (
	// ErrMixedEntityTypes is returned when a batch holds more than one entity type.
	ErrMixedEntityTypes    = errors.New("entities must all share one type")
	ErrActionRequired      = errors.New("action is required")
	ErrMediumRequired      = errors.New("medium is required")
	ErrEmptyRule           = errors.New("rule has no owning entity")
	ErrFollowWithoutEntity = errors.New("followed subentity type needs a followed entity")
	ErrRuleNotFound        = errors.New("rule not found")
)
