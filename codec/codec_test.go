package codec

import (
	"math/big"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimalRoundTrip(t *testing.T) {
	d := decimal.RequireFromString("1234.56789000000000001")
	encoded := EncodeDecimal(d)
	assert.Equal(t, "1234.56789000000000001::N", encoded)

	decoded, err := DecodeDecimal(encoded)
	require.NoError(t, err)
	assert.True(t, d.Equal(decoded))
}

func TestDateTimeUTCRoundTrip(t *testing.T) {
	ts := time.Date(2026, 7, 30, 12, 30, 0, 0, time.UTC)
	encoded := EncodeDateTimeUTC(ts)

	decoded, err := DecodeTimeLike(encoded)
	require.NoError(t, err)
	assert.True(t, ts.Equal(decoded))
}

func TestLargeIntRoundTrip(t *testing.T) {
	i := new(big.Int)
	i.SetString("123456789012345678901234567890", 10)
	encoded := EncodeLargeInt(i)

	decoded, err := DecodeLargeInt(encoded)
	require.NoError(t, err)
	assert.Equal(t, 0, i.Cmp(decoded))
}

func TestParseTaggedRejectsPlainStrings(t *testing.T) {
	_, ok := ParseTagged("just a string")
	assert.False(t, ok)
}

func TestMarshalUnmarshalTypedJSONRoundTrip(t *testing.T) {
	in := map[string]interface{}{
		"amount":    decimal.RequireFromString("9.99"),
		"timestamp": time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		"label":     "plain",
	}

	data, err := Marshal(in, ModeJSON, true)
	require.NoError(t, err)

	out, err := Unmarshal(data, ModeJSON, true)
	require.NoError(t, err)

	m, ok := out.(map[string]interface{})
	require.True(t, ok)

	amount, ok := m["amount"].(decimal.Decimal)
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("9.99").Equal(amount))

	assert.Equal(t, "plain", m["label"])
}

func TestMarshalUntypedPassesThroughPlainJSON(t *testing.T) {
	data, err := Marshal(map[string]interface{}{"x": 1}, ModeJSON, false)
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":1}`, string(data))
}
