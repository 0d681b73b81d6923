package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	"rentalcore/internal/fault"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeAndValidate decodes a JSON body into dst and runs its struct tags.
// Both failure modes surface as VALIDATION_FAILED.
func DecodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fault.Validation("invalid json: %v", err)
	}
	return validateStruct(dst)
}

// DecodeAndValidateOptional is DecodeAndValidate for endpoints whose body
// may be omitted entirely. An absent body leaves dst at its zero value; a
// present but malformed body still fails.
func DecodeAndValidateOptional(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fault.Validation("invalid json: %v", err)
	}
	return validateStruct(dst)
}

func validateStruct(dst any) error {
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return fault.Validation("field %s failed on %s", f.Field(), f.Tag())
		}
		return fault.Validation("invalid request payload")
	}
	return nil
}
