package form

import (
	"promoreg/internal/registration/models"
	"promoreg/pkg/validation"
)

// submissionLimits bounds the stored field lengths. The values are generous;
// the caps exist so a pasted essay cannot become a spreadsheet cell.
type submissionLimits struct {
	FullName        string `validate:"max=120"`
	Phone           string `validate:"max=32"`
	Bank            string `validate:"max=80"`
	AccountNumber   string `validate:"max=40"`
	Email           string `validate:"max=120"`
	ChatDisplayName string `validate:"max=120"`
	ChatHandle      string `validate:"max=80"`
}

// ValidateLimits rejects fields that exceed the per-field length caps. It
// assumes completeness has already been checked.
func ValidateLimits(fields Fields) error {
	return validation.Validate(submissionLimits{
		FullName:        fields[models.FieldFullName],
		Phone:           fields[models.FieldPhone],
		Bank:            fields[models.FieldBank],
		AccountNumber:   fields[models.FieldAccountNumber],
		Email:           fields[models.FieldEmail],
		ChatDisplayName: fields[models.FieldChatDisplayName],
		ChatHandle:      fields[models.FieldChatHandle],
	})
}
