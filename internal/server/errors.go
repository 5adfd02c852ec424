package server

import (
	"errors"
	"fmt"

	"connectrpc.com/connect"
	"github.com/go-playground/validator/v10"
	"google.golang.org/genproto/googleapis/rpc/errdetails"

	"github.com/at-ishikawa/civics/internal/persist"
	"github.com/at-ishikawa/civics/internal/preferences"
)

const maxIDLength = 128

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateID rejects empty, oversized and non-printable ids.
func validateID(field, id string) *connect.Error {
	err := validate.Var(id, fmt.Sprintf("required,max=%d,printascii", maxIDLength))
	if err == nil {
		return nil
	}

	description := err.Error()
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		fe := validationErrs[0]
		switch fe.Tag() {
		case "required":
			description = "must not be empty"
		case "max":
			description = fmt.Sprintf("must be at most %s characters", fe.Param())
		case "printascii":
			description = "must contain printable ASCII characters only"
		}
	}
	return invalidArgument(field, description)
}

func invalidArgument(field, description string) *connect.Error {
	connectErr := connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("%s %s", field, description))
	if detail, detailErr := connect.NewErrorDetail(&errdetails.BadRequest{
		FieldViolations: []*errdetails.BadRequest_FieldViolation{
			{Field: field, Description: description},
		},
	}); detailErr == nil {
		connectErr.AddDetail(detail)
	}
	return connectErr
}

func notFound(resourceType, id string) *connect.Error {
	connectErr := connect.NewError(connect.CodeNotFound, fmt.Errorf("%s %q not found", resourceType, id))
	if detail, detailErr := connect.NewErrorDetail(&errdetails.ResourceInfo{
		ResourceType: resourceType,
		ResourceName: id,
		Description:  "no such id in the content tree",
	}); detailErr == nil {
		connectErr.AddDetail(detail)
	}
	return connectErr
}

// toConnectError maps store errors to Connect codes.
func toConnectError(err error) *connect.Error {
	switch {
	case errors.Is(err, persist.ErrNotReady):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, preferences.ErrInvalidValue):
		return invalidArgument("preferences", err.Error())
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
