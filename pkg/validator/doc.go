// Package validator provides small declarative validation rules.
//
// A Rule pairs a Check function with the ValidationError reported when the
// check fails. Apply evaluates rules in order and aggregates every failure into
// a ValidationErrors slice, which implements error and matches
// ErrValidationFailed through errors.Is.
//
// # Usage
//
//	err := validator.Apply(
//	    validator.RequiredString("userId", req.UserID),
//	    validator.InList("type", req.Channel, allowed),
//	    validator.When(req.Email != "", validator.ValidEmail("email", req.Email)),
//	)
//	if verrs := validator.ExtractValidationErrors(err); verrs != nil {
//	    details := verrs.Map() // field -> messages
//	}
//
// Rules hold no state and are safe for concurrent use.
package validator
