// Package validation checks request input before it reaches a store.
//
// Struct tag validation (go-playground/validator) covers request bodies:
//
//	type createTerm struct {
//	    Name string `json:"name" validate:"notblank,max=255"`
//	}
//	if err := validation.Validate(req); err != nil {
//	    return err // INVALID_INPUT with per-field details
//	}
//
// The chained Validator covers values that do not come from a struct, such
// as multipart form fields and path parameters.
package validation
