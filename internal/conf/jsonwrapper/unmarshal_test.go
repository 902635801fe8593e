package jsonwrapper

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type testStruct struct {
	Values []int `json:"values"`
	Child  struct {
		Names []string `json:"names"`
	} `json:"child"`
}

func TestUnmarshalReplacesSlices(t *testing.T) {
	dest := testStruct{Values: []int{1, 2, 3}}
	dest.Child.Names = []string{"a", "b"}

	err := Unmarshal([]byte(`{"values":[4],"child":{"names":["c"]}}`), &dest)
	require.NoError(t, err)

	require.Equal(t, []int{4}, dest.Values)
	require.Equal(t, []string{"c"}, dest.Child.Names)
}

func TestUnmarshalErrors(t *testing.T) {
	for _, ca := range []struct {
		name string
		byts string
		err  string
	}{
		{
			"null slice",
			`{"child":{"names":null}}`,
			"cannot set slice 'child.names' to null",
		},
		{
			"unknown field",
			`{"other":1}`,
			`json: unknown field "other"`,
		},
		{
			"invalid",
			`{`,
			"unexpected end of JSON input",
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			var dest testStruct
			err := Unmarshal([]byte(ca.byts), &dest)
			require.EqualError(t, err, ca.err)
		})
	}
}
