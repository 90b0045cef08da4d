package form

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promoreg/internal/registration/models"
	domainerrors "promoreg/pkg/domain-errors"
)

func TestValidateLimits(t *testing.T) {
	fields := Fields{
		models.FieldFullName:        "สมชาย ใจดี",
		models.FieldPhone:           "0812345678",
		models.FieldBank:            "กสิกรไทย",
		models.FieldAccountNumber:   "1234567890",
		models.FieldEmail:           "somchai@example.com",
		models.FieldChatDisplayName: "Somchai",
		models.FieldChatHandle:      "@somchai",
	}
	require.NoError(t, ValidateLimits(fields))

	fields[models.FieldPhone] = strings.Repeat("0", 33)
	err := ValidateLimits(fields)
	require.Error(t, err)
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeMalformedInput))
	assert.Contains(t, err.Error(), "phone")
}
