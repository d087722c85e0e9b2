package validations

import (
	"context"

	domainSession "github.com/AzielCF/az-funnel/domains/session"
	pkgError "github.com/AzielCF/az-funnel/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

const (
	maxTextLength  = 2000
	maxLabelLength = 200
)

func ValidateSessionRequest(ctx context.Context, request domainSession.SessionRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.SessionID, validation.Required, is.UUID),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}

// ValidateSubmitText leaves blank text through: the conversation ignores it.
func ValidateSubmitText(ctx context.Context, request domainSession.SubmitTextRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.SessionID, validation.Required, is.UUID),
		validation.Field(&request.Text, validation.RuneLength(0, maxTextLength)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}

func ValidateSubmitChoice(ctx context.Context, request domainSession.SubmitChoiceRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.SessionID, validation.Required, is.UUID),
		validation.Field(&request.Label, validation.Required, validation.RuneLength(1, maxLabelLength)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}
