// Package binder decodes request input for API handlers: JSON bodies with
// strict field checking and query parameters into tagged structs.
//
//	var in project.Input
//	if err := binder.JSON(r, &in); err != nil {
//		return apierror.Validation("Invalid request body")
//	}
//
//	var q struct {
//		Limit int       `query:"limit"`
//		From  time.Time `query:"from"`
//	}
//	if err := binder.Query(r, &q); err != nil {
//		return apierror.Validation("Invalid query parameters")
//	}
package binder
