package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type sampleValue struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Tags  []string `json:"tags"`
}

func TestJsonEncoderDecoder(t *testing.T) {
	encdec := NewJsonEncoderDecoder[sampleValue]()
	data, err := encdec.Encode(sampleValue{Name: "users", Count: 3, Tags: []string{"a"}})
	require.NoError(t, err)

	decoded, err := encdec.Decode(data)
	require.NoError(t, err)
	require.Equal(t, "users", decoded.Name)
	require.Equal(t, 3, decoded.Count)

	_, err = encdec.Decode([]byte("{broken"))
	require.Error(t, err)
}

func TestCanonicalSortsKeys(t *testing.T) {
	a, err := Canonical(map[string]any{"b": 1, "a": []any{"x", true}})
	require.NoError(t, err)
	b, err := Canonical(map[string]any{"a": []any{"x", true}, "b": 1})
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Equal(t, `{"a":["x",true],"b":1}`, a)
}

func TestCanonicalKeepsHTMLCharacters(t *testing.T) {
	s, err := Canonical(map[string]any{"q": "a&b<c>"})
	require.NoError(t, err)
	require.Equal(t, `{"q":"a&b<c>"}`, s)
}
