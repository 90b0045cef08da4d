package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promoreg/internal/registration/models"
	domainerrors "promoreg/pkg/domain-errors"
)

func completeFields() Fields {
	return Fields{
		models.FieldFullName:        "สมชาย ใจดี",
		models.FieldPhone:           "0812345678",
		models.FieldBank:            "กสิกรไทย",
		models.FieldAccountNumber:   "1234567890",
		models.FieldEmail:           "somchai@example.com",
		models.FieldChatDisplayName: "Somchai J.",
		models.FieldChatHandle:      "@somchai",
	}
}

func TestValidate_Complete(t *testing.T) {
	assert.NoError(t, Validate(completeFields()))
}

func TestValidate_NamesExactlyTheEmptyFields(t *testing.T) {
	fields := completeFields()
	fields[models.FieldPhone] = "   "
	fields[models.FieldEmail] = ""

	err := Validate(fields)
	require.Error(t, err)
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeIncomplete))
	assert.Equal(t, []string{"phone", "email"}, domainerrors.MissingFields(err))
}

func TestValidate_AllMissing(t *testing.T) {
	err := Validate(Fields{})
	require.Error(t, err)
	assert.Len(t, domainerrors.MissingFields(err), len(models.FieldOrder))
}

func TestEnrichEmail(t *testing.T) {
	t.Run("extracts embedded address", func(t *testing.T) {
		fields := completeFields()
		fields[models.FieldEmail] = "อีเมลของผมคือ somchai@example.com นะครับ"
		EnrichEmail(fields)
		assert.Equal(t, "somchai@example.com", fields[models.FieldEmail])
	})

	t.Run("leaves non-email values as typed", func(t *testing.T) {
		fields := completeFields()
		fields[models.FieldEmail] = "ไม่มีอีเมล"
		EnrichEmail(fields)
		assert.Equal(t, "ไม่มีอีเมล", fields[models.FieldEmail])
	})

	t.Run("never touches other fields", func(t *testing.T) {
		fields := completeFields()
		fields[models.FieldBank] = "contact bank@branch.example.th"
		EnrichEmail(fields)
		assert.Equal(t, "contact bank@branch.example.th", fields[models.FieldBank])
	})
}
