package dsmal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanMixOfParamAndBareInstructions(t *testing.T) {
	tokens, err := Scan("Lc0Lv12AdXx")
	require.NoError(t, err)
	require.Len(t, tokens, 4)

	assert.Equal(t, Token{Mnemonic: "Lc", Param: 0, HasParam: true, Offset: 0}, tokens[0])
	assert.Equal(t, Token{Mnemonic: "Lv", Param: 12, HasParam: true, Offset: 3}, tokens[1])
	assert.Equal(t, Token{Mnemonic: "Ad", Offset: 7}, tokens[2])
	assert.Equal(t, Token{Mnemonic: "Xx", Offset: 9}, tokens[3])
}

func TestScanRejectsLowercaseFirstLetter(t *testing.T) {
	_, err := Scan("aB")
	assert.Error(t, err)
}

func TestScanRejectsUppercaseSecondLetter(t *testing.T) {
	_, err := Scan("AB")
	assert.Error(t, err)
}

func TestScanRejectsTruncatedInstruction(t *testing.T) {
	_, err := Scan("A")
	assert.Error(t, err)
}

func TestScanRejectsOversizedParameter(t *testing.T) {
	_, err := Scan("Lc65536")
	assert.Error(t, err)
}

func TestScanAcceptsMaxParameter(t *testing.T) {
	tokens, err := Scan("Lc65535")
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, uint16(65535), tokens[0].Param)
}

func TestScanEmptyCodeYieldsNoTokens(t *testing.T) {
	tokens, err := Scan("")
	require.NoError(t, err)
	assert.Empty(t, tokens)
}
