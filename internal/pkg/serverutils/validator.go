package serverutils

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateRequest runs the struct's validate tags. The returned error is a
// validator.ValidationErrors when a rule fails.
func ValidateRequest(req interface{}) error {
	return validate.Struct(req)
}

// FieldError is the client-facing shape of one failed rule.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

func fieldErrors(errs validator.ValidationErrors) []FieldError {
	out := make([]FieldError, len(errs))
	for i, e := range errs {
		out[i] = FieldError{Field: e.Field(), Rule: e.Tag(), Param: e.Param()}
	}
	return out
}
