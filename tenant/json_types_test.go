package tenant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONStrings_ValueScanRoundTrip(t *testing.T) {
	s := JSONStrings{"a", "b", "c"}
	v, err := s.Value()
	require.NoError(t, err)

	var scanned JSONStrings
	require.NoError(t, scanned.Scan(v))
	assert.Equal(t, s, scanned)
}

func TestJSONStrings_NilValueEncodesEmptyArray(t *testing.T) {
	var s JSONStrings
	v, err := s.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}

func TestJSONStrings_ScanNilClears(t *testing.T) {
	s := JSONStrings{"a"}
	require.NoError(t, s.Scan(nil))
	assert.Nil(t, s)
}

func TestJSONStrings_ScanAcceptsStringAndBytes(t *testing.T) {
	var fromString JSONStrings
	require.NoError(t, fromString.Scan(`["x","y"]`))
	assert.Equal(t, JSONStrings{"x", "y"}, fromString)

	var fromBytes JSONStrings
	require.NoError(t, fromBytes.Scan([]byte(`["x","y"]`)))
	assert.Equal(t, JSONStrings{"x", "y"}, fromBytes)
}

func TestJSONStrings_ScanRejectsUnsupportedType(t *testing.T) {
	var s JSONStrings
	assert.Error(t, s.Scan(42))
}

func TestJSONObject_ValueScanRoundTrip(t *testing.T) {
	o := JSONObject{"k1": "v1", "k2": float64(2)}
	v, err := o.Value()
	require.NoError(t, err)

	var scanned JSONObject
	require.NoError(t, scanned.Scan(v))
	assert.Equal(t, o, scanned)
}

func TestJSONObject_NilValueEncodesEmptyObject(t *testing.T) {
	var o JSONObject
	v, err := o.Value()
	require.NoError(t, err)
	assert.Equal(t, "{}", v)
}

func TestJSONObject_ScanEmptyBytesClears(t *testing.T) {
	o := JSONObject{"k": "v"}
	require.NoError(t, o.Scan([]byte{}))
	assert.Nil(t, o)
}
