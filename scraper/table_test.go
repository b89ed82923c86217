package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOddsFractional(t *testing.T) {
	v, err := parseOdds("9/4")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.InDelta(t, 3.25, *v, 0.0001)
}

func TestParseOddsDecimal(t *testing.T) {
	v, err := parseOdds("12.5")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.InDelta(t, 12.5, *v, 0.0001)
}

func TestParseOddsPlaceholders(t *testing.T) {
	for _, s := range []string{"", "-", "--", "SCR", "None", "nan", "NaN"} {
		v, err := parseOdds(s)
		require.NoError(t, err, s)
		assert.Nil(t, v, s)
	}
}

func TestParseOddsGarbage(t *testing.T) {
	_, err := parseOdds("evens")
	assert.Error(t, err)

	_, err = parseOdds("9/0")
	assert.Error(t, err)
}

func TestParseMoney(t *testing.T) {
	v, err := parseMoney("$1,234", 0)
	require.NoError(t, err)
	assert.Equal(t, 1234, v)

	v, err = parseMoney("-", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestParseMoneyFloat(t *testing.T) {
	v, err := parseMoneyFloat("$2.50")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.InDelta(t, 2.5, *v, 0.0001)

	v, err = parseMoneyFloat("--")
	require.NoError(t, err)
	assert.Nil(t, v)
}
