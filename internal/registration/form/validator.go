package form

import (
	"strings"

	"promoreg/internal/registration/models"
	domainerrors "promoreg/pkg/domain-errors"
)

// Validate checks that every canonical field is present and non-empty after
// trimming. It returns an incomplete error naming the missing fields in
// template order. No format validation is applied; shape checks like email
// extraction are a separate enrichment concern.
func Validate(fields Fields) error {
	var missing []string
	for _, key := range models.FieldOrder {
		if strings.TrimSpace(fields[key]) == "" {
			missing = append(missing, string(key))
		}
	}
	if len(missing) > 0 {
		return domainerrors.NewIncomplete("submission incomplete", missing)
	}
	return nil
}
