package form

import (
	"regexp"

	"promoreg/internal/registration/models"
)

var emailPattern = regexp.MustCompile(`[\w.+-]+@[\w.-]+\.\w+`)

// EnrichEmail extracts a well-formed email substring from the email field,
// tolerating decoration like "อีเมลของฉันคือ me@example.com ครับ". It only
// ever touches the email field and only when an email-shaped substring
// exists; otherwise the value is left as typed so validation still sees it.
func EnrichEmail(fields Fields) {
	raw, ok := fields[models.FieldEmail]
	if !ok {
		return
	}
	if match := emailPattern.FindString(raw); match != "" {
		fields[models.FieldEmail] = match
	}
}
