package validation

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	kaerrors "github.com/Melonai/ka/internal/errors"
	shared "github.com/Melonai/ka/shared/types"

	"github.com/go-playground/validator/v10"
)

// maxBodySize bounds request bodies; every body the API accepts is tiny.
const maxBodySize = 1 << 16

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode reads a JSON body into v and validates it. An empty body leaves v
// at its zero value before validation.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return kaerrors.ValidationError("invalid request body", err.Error())
	}

	if err := validate.Struct(v); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			details := make(map[string]string, len(fieldErrs))
			for _, fe := range fieldErrs {
				details[fe.Field()] = fe.Tag()
			}
			return kaerrors.ValidationError("invalid request", details)
		}
		return kaerrors.ValidationError("invalid request", err.Error())
	}
	return nil
}

func ValidateShiftRequest(r *http.Request) (*shared.ShiftRequest, error) {
	var req shared.ShiftRequest
	if err := Decode(r, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func ValidateUpdateRequest(r *http.Request) (*shared.UpdateRequest, error) {
	var req shared.UpdateRequest
	if err := Decode(r, &req); err != nil {
		return nil, err
	}
	return &req, nil
}
