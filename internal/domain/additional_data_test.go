package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdditionalData_Accessors(t *testing.T) {
	data := AdditionalData{
		"text":    "value",
		"empty":   "",
		"number":  json.Number("1050"),
		"flag":    true,
		"strflag": "true",
		"native":  int64(7),
	}

	s, ok := data.String("text")
	assert.True(t, ok)
	assert.Equal(t, "value", s)

	_, ok = data.String("empty")
	assert.False(t, ok)
	assert.Equal(t, "fallback", data.StringOr("missing", "fallback"))
	assert.Equal(t, "1050", data.StringOr("number", ""))

	assert.True(t, data.Bool("flag"))
	assert.True(t, data.Bool("strflag"))
	assert.False(t, data.Bool("text"))
	assert.False(t, AdditionalData(nil).Bool("flag"))

	n, ok := data.Int64("number")
	assert.True(t, ok)
	assert.Equal(t, int64(1050), n)
	n, ok = data.Int64("native")
	assert.True(t, ok)
	assert.Equal(t, int64(7), n)
	_, ok = data.Int64("text")
	assert.False(t, ok)
}

func TestAdditionalData_MergeKeepsOriginal(t *testing.T) {
	base := AdditionalData{"a": "1", "b": "2"}

	merged := base.Merge(AdditionalData{"b": "3", "c": "4"})

	assert.Equal(t, AdditionalData{"a": "1", "b": "3", "c": "4"}, merged)
	assert.Equal(t, AdditionalData{"a": "1", "b": "2"}, base)
}

func TestAdditionalData_Encode(t *testing.T) {
	raw, err := AdditionalData{"a": "", "b": nil, "c": map[string]interface{}{}}.Encode()
	require.NoError(t, err)
	assert.Nil(t, raw)

	raw, err = AdditionalData{"id": "pi_1", "amount": int64(1000), "skip": ""}.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"pi_1","amount":1000}`, string(raw))
}

func TestAdditionalData_NormalizeMatchesStored(t *testing.T) {
	built := AdditionalData{"amount": int64(1000), "paid": true, "id": "pi_1"}

	normalized, err := built.Normalize()
	require.NoError(t, err)

	stored, err := DecodeAdditionalData([]byte(`{"id":"pi_1","paid":true,"amount":1000}`))
	require.NoError(t, err)
	assert.Equal(t, stored, normalized)
	assert.Equal(t, json.Number("1000"), normalized["amount"])
}

func TestDecodeAdditionalData(t *testing.T) {
	empty, err := DecodeAdditionalData(nil)
	require.NoError(t, err)
	assert.Equal(t, AdditionalData{}, empty)

	null, err := DecodeAdditionalData([]byte("null"))
	require.NoError(t, err)
	assert.NotNil(t, null)

	_, err = DecodeAdditionalData([]byte("{"))
	assert.Error(t, err)
}
