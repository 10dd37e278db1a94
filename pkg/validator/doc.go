// Package validator builds declarative input checks from small Rule values.
//
// Each rule pairs a Check func with the ValidationError reported when the
// check fails. Apply evaluates rules in order and returns every failure as
// ValidationErrors, which implements error and marshals to JSON as a list of
// {field, message} objects:
//
//	err := validator.Apply(
//		validator.RequiredString("name", in.Name),
//		validator.MaxLenString("name", in.Name, 100),
//		validator.MinNum("limit", f.Limit, 0),
//	)
//	if verrs := validator.ExtractValidationErrors(err); verrs != nil {
//		// report verrs per field
//	}
//
// Rules hold no state and are safe for concurrent use.
package validator
