package form

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promoreg/internal/registration/models"
	domainerrors "promoreg/pkg/domain-errors"
)

const wellFormed = `ชื่อ นามสกุล: สมชาย ใจดี
เบอร์โทร: 0812345678
ธนาคาร: กสิกรไทย
เลขบัญชี: 1234567890
อีเมล: somchai@example.com
ชื่อเทเลแกรม: Somchai J.
ยูสเซอร์เทเลแกรม: @somchai`

func TestParsePositional_WellFormed(t *testing.T) {
	fields, err := ParsePositional(wellFormed)
	require.NoError(t, err)

	assert.Equal(t, "สมชาย ใจดี", fields[models.FieldFullName])
	assert.Equal(t, "0812345678", fields[models.FieldPhone])
	assert.Equal(t, "กสิกรไทย", fields[models.FieldBank])
	assert.Equal(t, "1234567890", fields[models.FieldAccountNumber])
	assert.Equal(t, "somchai@example.com", fields[models.FieldEmail])
	assert.Equal(t, "Somchai J.", fields[models.FieldChatDisplayName])
	assert.Equal(t, "@somchai", fields[models.FieldChatHandle])
}

func TestParsePositional_IgnoresLabelText(t *testing.T) {
	// Users edit labels freely; only the colon-bearing line count and order matter.
	input := `1: a
2: b
3: c
4: d
5: e
6: f
7: g`
	fields, err := ParsePositional(input)
	require.NoError(t, err)
	assert.Equal(t, "a", fields[models.FieldFullName])
	assert.Equal(t, "g", fields[models.FieldChatHandle])
}

func TestParsePositional_SkipsLinesWithoutColon(t *testing.T) {
	input := "สวัสดีครับ ส่งข้อมูลตามนี้\n" + wellFormed + "\n\nขอบคุณครับ"
	fields, err := ParsePositional(input)
	require.NoError(t, err)
	assert.Equal(t, "0812345678", fields[models.FieldPhone])
}

func TestParsePositional_TrimsValues(t *testing.T) {
	input := strings.ReplaceAll(wellFormed, ": ", ":   ")
	fields, err := ParsePositional(input)
	require.NoError(t, err)
	assert.Equal(t, "สมชาย ใจดี", fields[models.FieldFullName])
}

func TestParsePositional_WrongLineCount(t *testing.T) {
	t.Run("too few", func(t *testing.T) {
		lines := strings.Split(wellFormed, "\n")
		_, err := ParsePositional(strings.Join(lines[:6], "\n"))
		assert.True(t, domainerrors.HasCode(err, domainerrors.CodeMalformedInput))
	})

	t.Run("too many", func(t *testing.T) {
		_, err := ParsePositional(wellFormed + "\nไลน์: @somchai-line")
		assert.True(t, domainerrors.HasCode(err, domainerrors.CodeMalformedInput))
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := ParsePositional("")
		assert.True(t, domainerrors.HasCode(err, domainerrors.CodeMalformedInput))
	})
}

func TestParsePositional_ValueContainingColon(t *testing.T) {
	// Only the first colon separates label from value.
	input := strings.Replace(wellFormed, "Somchai J.", "Somchai: J.", 1)
	fields, err := ParsePositional(input)
	require.NoError(t, err)
	assert.Equal(t, "Somchai: J.", fields[models.FieldChatDisplayName])
}

func TestParseLabeled_Reordered(t *testing.T) {
	input := `อีเมล: somchai@example.com
เบอร์โทร: 0812345678
ชื่อ นามสกุล: สมชาย ใจดี
ยูสเซอร์เทเลแกรม: @somchai
ชื่อเทเลแกรม: Somchai J.
เลขบัญชี: 1234567890
ธนาคาร: กสิกรไทย`

	fields := ParseLabeled(input)
	assert.Equal(t, "สมชาย ใจดี", fields[models.FieldFullName])
	assert.Equal(t, "0812345678", fields[models.FieldPhone])
	assert.Equal(t, "@somchai", fields[models.FieldChatHandle])
	assert.Equal(t, "Somchai J.", fields[models.FieldChatDisplayName])
	assert.Equal(t, "1234567890", fields[models.FieldAccountNumber])
}

func TestParseLabeled_DropsUnknownLabelsSilently(t *testing.T) {
	// The known failure mode of this strategy: a typo'd label vanishes.
	input := `โปรไฟล์: สมชาย`
	fields := ParseLabeled(input)
	assert.Empty(t, fields)
}

func TestParseLabeled_EnglishSynonyms(t *testing.T) {
	input := `Name: John Smith
Phone: 0899999999
Bank: SCB
Account: 555000111
Email: john@example.com
Telegram: John S
Username: @johns`

	fields := ParseLabeled(input)
	assert.Equal(t, "John Smith", fields[models.FieldFullName])
	assert.Equal(t, "SCB", fields[models.FieldBank])
	assert.Equal(t, "@johns", fields[models.FieldChatHandle])
	assert.Equal(t, "John S", fields[models.FieldChatDisplayName])
}

func TestTemplate_ParsesAsEmptySubmission(t *testing.T) {
	// The literal template must survive its own parser: 7 colon lines, all empty.
	fields, err := ParsePositional(Template)
	require.NoError(t, err)
	for _, key := range models.FieldOrder {
		assert.Empty(t, fields[key])
	}
}
