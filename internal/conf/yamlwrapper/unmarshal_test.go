package yamlwrapper

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type testStruct struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Tags  []string `json:"tags"`
	Inner struct {
		Enabled bool `json:"enabled"`
	} `json:"inner"`
}

func TestUnmarshal(t *testing.T) {
	var dest testStruct
	err := Unmarshal([]byte("name: first\n"+
		"count: 3\n"+
		"tags: [a, b]\n"+
		"inner:\n"+
		"  enabled: yes\n"), &dest)
	require.NoError(t, err)

	require.Equal(t, "first", dest.Name)
	require.Equal(t, 3, dest.Count)
	require.Equal(t, []string{"a", "b"}, dest.Tags)
	require.True(t, dest.Inner.Enabled)
}

func TestUnmarshalEmpty(t *testing.T) {
	dest := testStruct{Name: "kept"}
	err := Unmarshal([]byte(""), &dest)
	require.NoError(t, err)
	require.Equal(t, "kept", dest.Name)
}

func TestUnmarshalErrors(t *testing.T) {
	for _, ca := range []struct {
		name string
		byts string
		err  string
	}{
		{
			"duplicate key",
			"name: a\nname: b\n",
			`key "name" already set in map`,
		},
		{
			"non-string key",
			"1: a\n",
			"non-string keys are not supported (1)",
		},
		{
			"unknown field",
			"other: a\n",
			`json: unknown field "other"`,
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			var dest testStruct
			err := Unmarshal([]byte(ca.byts), &dest)
			require.ErrorContains(t, err, ca.err)
		})
	}
}
