package envvalue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		value  Value[string]
		env    string
		want   string
		wantOK bool
	}{
		{"scalar", Scalar("v"), "dev", "v", true},
		{"scalar other env", Scalar("v"), "prod", "v", true},
		{"env entry", PerEnvironment(map[string]string{"dev": "d", DefaultKey: "x"}), "dev", "d", true},
		{"falls back to default", PerEnvironment(map[string]string{"dev": "d", DefaultKey: "x"}), "prod", "x", true},
		{"no entry no default", PerEnvironment(map[string]string{"dev": "d"}), "prod", "", false},
		{"empty mapping", PerEnvironment[string](nil), "dev", "", false},
		{"unset", Value[string]{}, "dev", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.value.Resolve(tt.env)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_AbsentBoolIsFalsy(t *testing.T) {
	enabled := PerEnvironment(map[string]bool{"prod": true})

	assert.False(t, enabled.ResolveOr("dev", false))
	assert.True(t, enabled.ResolveOr("prod", false))
}

func TestUnmarshalJSON(t *testing.T) {
	var doc struct {
		Replicas Value[int]    `json:"replicas"`
		Enabled  Value[bool]   `json:"enabled"`
		Port     Value[string] `json:"port"`
		Missing  Value[string] `json:"missing"`
		Null     Value[string] `json:"null"`
	}

	err := json.Unmarshal([]byte(`{
		"replicas": {"prod": 3, "_default": 1},
		"enabled": true,
		"port": 8080,
		"null": null
	}`), &doc)
	require.NoError(t, err)

	assert.True(t, doc.Replicas.IsPerEnvironment())
	assert.Equal(t, 3, doc.Replicas.ResolveOr("prod", 0))
	assert.Equal(t, 1, doc.Replicas.ResolveOr("dev", 0))
	assert.True(t, doc.Enabled.ResolveOr("dev", false))
	assert.Equal(t, "8080", doc.Port.ResolveOr("dev", ""))
	assert.False(t, doc.Missing.IsSet())
	assert.False(t, doc.Null.IsSet())
}

func TestUnmarshalJSON_RejectsWrongType(t *testing.T) {
	var v Value[int]
	err := json.Unmarshal([]byte(`{"dev": "three"}`), &v)
	assert.Error(t, err)
}

func TestUnmarshalYAML(t *testing.T) {
	var doc struct {
		Schedule    Value[string] `yaml:"schedule"`
		Enabled     Value[bool]   `yaml:"enabled"`
		Tolerations Value[any]    `yaml:"tolerations"`
		Empty       Value[string] `yaml:"empty"`
	}

	err := yaml.Unmarshal([]byte(`
schedule:
  prod: "0 * * * *"
  _default: "*/5 * * * *"
enabled: false
tolerations:
  - key: dedicated
    operator: Exists
empty: ~
`), &doc)
	require.NoError(t, err)

	assert.Equal(t, "0 * * * *", doc.Schedule.ResolveOr("prod", ""))
	assert.Equal(t, "*/5 * * * *", doc.Schedule.ResolveOr("stage", ""))
	assert.True(t, doc.Enabled.IsSet())
	assert.False(t, doc.Enabled.ResolveOr("dev", true))
	assert.False(t, doc.Tolerations.IsPerEnvironment())
	assert.False(t, doc.Empty.IsSet())

	tolerations, ok := doc.Tolerations.Resolve("dev")
	require.True(t, ok)
	assert.Len(t, tolerations, 1)
}

func TestMarshal_KeepsShape(t *testing.T) {
	v := PerEnvironment(map[string]string{"dev": "a"})

	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"dev":"a"}`, string(data))

	out, err := yaml.Marshal(map[string]Value[string]{"API": v, "X": Scalar("b")})
	require.NoError(t, err)
	assert.Equal(t, "API:\n    dev: a\nX: b\n", string(out))

	var back map[string]Value[string]
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, map[string]string{"dev": "a"}, back["API"].Entries())
	assert.Equal(t, "b", back["X"].ResolveOr("dev", ""))
}

func TestTransform(t *testing.T) {
	v := PerEnvironment(map[string]string{"dev": "a", "prod": "b"})

	out, err := v.Transform(func(s string) (string, error) { return s + s, nil })
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"dev": "aa", "prod": "bb"}, out.Entries())

	scalar, err := Scalar("x").Transform(func(s string) (string, error) { return s + "!", nil })
	require.NoError(t, err)
	assert.Equal(t, "x!", scalar.ResolveOr("any", ""))
}

func TestMapResolve_SkipsAbsent(t *testing.T) {
	m := Map[string]{
		"A": Scalar("1"),
		"B": PerEnvironment(map[string]string{"prod": "2"}),
		"C": PerEnvironment(map[string]string{DefaultKey: "3"}),
	}

	assert.Equal(t, map[string]string{"A": "1", "C": "3"}, m.Resolve("dev"))
	assert.Equal(t, []string{"A", "B", "C"}, m.Names())
}
