package validations

import (
	"context"
	"strings"
	"testing"

	domainSession "github.com/AzielCF/az-funnel/domains/session"
	pkgError "github.com/AzielCF/az-funnel/pkg/error"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validID = "3f1c2a9e-8a4b-4c1d-9e2f-0a1b2c3d4e5f"

func TestValidateSessionRequest(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, ValidateSessionRequest(ctx, domainSession.SessionRequest{SessionID: validID}))

	err := ValidateSessionRequest(ctx, domainSession.SessionRequest{SessionID: "nope"})
	require.Error(t, err)
	assert.IsType(t, pkgError.ValidationError(""), err)

	assert.Error(t, ValidateSessionRequest(ctx, domainSession.SessionRequest{}))
}

func TestValidateSubmitText(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, ValidateSubmitText(ctx, domainSession.SubmitTextRequest{SessionID: validID, Text: "Ana"}))
	assert.NoError(t, ValidateSubmitText(ctx, domainSession.SubmitTextRequest{SessionID: validID, Text: "   "}))

	long := strings.Repeat("á", maxTextLength+1)
	err := ValidateSubmitText(ctx, domainSession.SubmitTextRequest{SessionID: validID, Text: long})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "text")
}

func TestValidateSubmitChoice(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, ValidateSubmitChoice(ctx, domainSession.SubmitChoiceRequest{SessionID: validID, Label: "SIM EU QUERO"}))

	err := ValidateSubmitChoice(ctx, domainSession.SubmitChoiceRequest{SessionID: validID})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "label")
}
