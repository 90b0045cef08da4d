// Package form turns raw multi-line submissions into validated field mappings.
package form

import (
	"fmt"
	"strings"

	"promoreg/internal/registration/models"
	domainerrors "promoreg/pkg/domain-errors"
	s "promoreg/pkg/string"
)

// Fields maps canonical field keys to trimmed user-typed values.
type Fields map[models.FieldKey]string

// Template is the literal 7-line form users are asked to copy. Re-prompt
// messages quote it verbatim so a failed submission can be fixed by pasting.
const Template = "ชื่อ นามสกุล: \n" +
	"เบอร์โทร: \n" +
	"ธนาคาร: \n" +
	"เลขบัญชี: \n" +
	"อีเมล: \n" +
	"ชื่อเทเลแกรม: \n" +
	"ยูสเซอร์เทเลแกรม: "

// ParsePositional is the canonical parsing strategy. It keeps only lines
// containing a colon, requires exactly one such line per canonical field, and
// takes the trimmed substring after the first colon in positional order.
// Users may edit the label text freely; only line count and order matter.
func ParsePositional(text string) (Fields, error) {
	values := make([]string, 0, len(models.FieldOrder))
	for _, line := range strings.Split(text, "\n") {
		_, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		values = append(values, value)
	}
	s.TrimSlice(values)

	if len(values) != len(models.FieldOrder) {
		return nil, domainerrors.New(domainerrors.CodeMalformedInput,
			fmt.Sprintf("expected %d fields, got %d", len(models.FieldOrder), len(values)))
	}

	fields := make(Fields, len(models.FieldOrder))
	for i, key := range models.FieldOrder {
		fields[key] = values[i]
	}
	return fields, nil
}

// labelSynonyms fuzzy-matches a normalized label to a canonical field. A label
// matches when it contains any of the field's keywords.
var labelSynonyms = map[models.FieldKey][]string{
	models.FieldChatHandle:      {"ยูสเซอร์", "username", "handle", "@"},
	models.FieldChatDisplayName: {"ชื่อเทเลแกรม", "เทเลแกรม", "telegram", "display"},
	models.FieldAccountNumber:   {"เลขบัญชี", "บัญชี", "account"},
	models.FieldFullName:        {"ชื่อ", "นามสกุล", "name"},
	models.FieldPhone:           {"เบอร์", "โทร", "phone", "tel"},
	models.FieldBank:            {"ธนาคาร", "bank"},
	models.FieldEmail:           {"อีเมล", "เมล", "email", "e-mail"},
}

// labelMatchOrder resolves ambiguous labels: more specific keywords are tried
// first ("ชื่อเทเลแกรม" must not fall through to the bare "ชื่อ" of full_name).
var labelMatchOrder = []models.FieldKey{
	models.FieldChatHandle,
	models.FieldChatDisplayName,
	models.FieldAccountNumber,
	models.FieldPhone,
	models.FieldBank,
	models.FieldEmail,
	models.FieldFullName,
}

// ParseLabeled is the alternative strategy for forms where users reorder
// lines. Each colon-bearing line is split into (label, value); the label is
// case-folded and matched against per-field keyword synonyms. Unmatched
// labels are dropped silently, so a typo in a label makes the field both
// missing and invisible to the error message. ParsePositional is preferred
// for the fixed template.
func ParseLabeled(text string) Fields {
	fields := make(Fields)
	for _, line := range strings.Split(text, "\n") {
		label, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key, matched := matchLabel(label)
		if !matched {
			continue
		}
		if _, taken := fields[key]; taken {
			continue
		}
		fields[key] = strings.TrimSpace(value)
	}
	return fields
}

func matchLabel(label string) (models.FieldKey, bool) {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(label), " ", ""))
	for _, key := range labelMatchOrder {
		for _, keyword := range labelSynonyms[key] {
			if strings.Contains(normalized, keyword) {
				return key, true
			}
		}
	}
	return "", false
}
