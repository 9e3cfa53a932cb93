package issn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckDigit(t *testing.T) {
	assert.Equal(t, "1", CheckDigit("0317847"))
	assert.Equal(t, "0", CheckDigit("2049363"))
	assert.Equal(t, "X", CheckDigit("1050124"))
	assert.Equal(t, "", CheckDigit(""))
	assert.Equal(t, "", CheckDigit("123"))
	assert.Equal(t, "", CheckDigit("abcdefg"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "0028-0836", Normalize("0028-0836"))
	assert.Equal(t, "0028-0836", Normalize(" 00280836 "))
	assert.Equal(t, "1050-124X", Normalize("1050-124x"))
	assert.Equal(t, "", Normalize("0028-0837"))
	assert.Equal(t, "", Normalize(""))
	assert.Equal(t, "", Normalize("0028-08361"))
	assert.Equal(t, "", Normalize("002A-0836"))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("0317-8471"))
	assert.False(t, Valid("0317-8472"))
}
