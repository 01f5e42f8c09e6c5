package cli

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSymbol(t *testing.T) {
	for _, symbol := range []string{"AAPL", "BRK.B", "BF-B", "A", "MSFT2"} {
		assert.NoError(t, ValidateSymbol(symbol), symbol)
	}
	for _, symbol := range []string{"", "aapl", "AAPL;DROP", "../etc", "TOOLONGSYMBOL"} {
		assert.Error(t, ValidateSymbol(symbol), symbol)
	}
}

func TestParseSymbols(t *testing.T) {
	symbols, err := ParseSymbols("aapl, MSFT ,nvda")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT", "NVDA"}, symbols)

	symbols, err = ParseSymbols("  ")
	require.NoError(t, err)
	assert.Nil(t, symbols)

	_, err = ParseSymbols("AAPL,bad symbol")
	assert.Error(t, err)
}

func TestValidateBatchID(t *testing.T) {
	assert.NoError(t, ValidateBatchID(uuid.NewString()))
	assert.Error(t, ValidateBatchID("not-a-uuid"))
	assert.Error(t, ValidateBatchID(""))
}
