// Package validator provides request body validation on top of
// go-playground/validator.
//
// Fields are reported by their JSON names, nested paths included, and
// ValidateRequest turns failures into an apperrors InvalidArgument error whose
// details map each field to a message:
//
//	if err := validator.ValidateRequest(&input); err != nil {
//	    return err
//	}
//
// Besides the built-in tags, "notblank" rejects strings that are only whitespace.
package validator
