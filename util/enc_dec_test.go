package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

func TestJsonEncoderDecoder(t *testing.T) {
	encDec := NewJsonEncoderDecoder[sample]()
	data, err := encDec.Encode(sample{Name: "a", Count: 2})
	require.NoError(t, err)
	require.JSONEq(t, `{"name":"a","count":2}`, string(data))

	res, err := encDec.Decode(data)
	require.NoError(t, err)
	require.Equal(t, sample{Name: "a", Count: 2}, *res)

	_, err = encDec.Decode(nil)
	require.Error(t, err)
	_, err = encDec.Decode([]byte("{"))
	require.Error(t, err)
}

func TestIndentedJsonEncoderDecoder(t *testing.T) {
	encDec := NewIndentedJsonEncoderDecoder[sample]("  ")
	data, err := encDec.Encode(sample{Name: "a", Count: 2})
	require.NoError(t, err)
	require.Equal(t, "{\n  \"name\": \"a\",\n  \"count\": 2\n}", string(data))
}

func TestYamlEncoderDecoder(t *testing.T) {
	encDec := NewYamlEncoderDecoder[sample]()
	res, err := encDec.Decode([]byte("name: b\ncount: 3\n"))
	require.NoError(t, err)
	require.Equal(t, sample{Name: "b", Count: 3}, *res)

	data, err := encDec.Encode(*res)
	require.NoError(t, err)
	require.Equal(t, "name: b\ncount: 3\n", string(data))
}
