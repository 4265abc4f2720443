// Package validator builds declarative validation rules.
//
// Each rule pairs a Check with the error reported when it fails. Apply runs
// them all and returns ValidationErrors, which implements error:
//
//	err := validator.Apply(
//		validator.RequiredString("file", name),
//		validator.MinNum("expiration_minutes", minutes, 5),
//		validator.MinNum("access_limit", limit, -1),
//	)
//	if verrs := validator.ExtractValidationErrors(err); verrs != nil {
//		// verrs.Map() groups messages by field
//	}
package validator
