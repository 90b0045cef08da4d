package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskDigits(t *testing.T) {
	assert.Equal(t, "******5678", MaskDigits("0812345678"))
	assert.Equal(t, "****", MaskDigits("1234"))
	assert.Equal(t, "", MaskDigits(""))
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "s******@example.com", MaskEmail("somchai@example.com"))
	assert.Equal(t, "*@example.com", MaskEmail("a@example.com"))
	assert.Equal(t, "*********", MaskEmail("not-an-email"))
}
