package audit

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_AlwaysProducesValidJSON(t *testing.T) {
	n := NewNormalizer()

	inputs := []any{
		nil,
		"",
		"   ",
		"plain text",
		`text with "quotes" inside`,
		`{"already": "json"}`,
		`[1, 2, 3]`,
		`"a json string"`,
		"null",
		"not { quite json",
		map[string]any{"nested": map[string]int{"n": 1}},
		[]string{"a", "b"},
		42,
		struct {
			Name string `json:"name"`
		}{Name: "alice"},
		json.RawMessage(`{"raw": true}`),
		json.RawMessage(`broken {`),
	}

	for _, input := range inputs {
		out := n.Normalize(input)
		assert.True(t, json.Valid([]byte(out)), "Normalize(%v) produced invalid JSON: %s", input, out)
	}
}

func TestNormalize_NilBecomesNullLiteral(t *testing.T) {
	n := NewNormalizer()
	assert.Equal(t, "null", n.Normalize(nil))
}

func TestNormalize_ValidJSONStringUnchanged(t *testing.T) {
	n := NewNormalizer()

	in := `{"usuario": "alice", "rol": "ADMINISTRADOR"}`
	assert.Equal(t, in, n.Normalize(in))
}

func TestNormalize_IdempotentOnValidInput(t *testing.T) {
	n := NewNormalizer()

	for _, in := range []string{`{"a": 1}`, `[true]`, `"s"`, "null", "plain text"} {
		once := n.Normalize(in)
		twice := n.Normalize(once)
		assert.Equal(t, once, twice, "Normalize should be idempotent for %q", in)
	}
}

func TestNormalize_PlainStringWrapped(t *testing.T) {
	n := NewNormalizer()

	out := n.Normalize("Usuario creado: alice")

	var wrapper map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &wrapper))
	assert.Equal(t, "Usuario creado: alice", wrapper["mensaje"])
}

func TestNormalize_ObjectSerializedDirectly(t *testing.T) {
	n := NewNormalizer()

	out := n.Normalize(map[string]any{"username": "alice", "attempts": 3})

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "alice", decoded["username"])
	assert.Equal(t, float64(3), decoded["attempts"])
}

func TestNormalize_SerializerFailureFallsBackToManualWrapper(t *testing.T) {
	n := NewNormalizer(WithMarshal(func(any) ([]byte, error) {
		return nil, errors.New("serializer down")
	}))

	out := n.Normalize(`free text with "quotes"`)

	require.True(t, json.Valid([]byte(out)), "manual fallback must still be valid JSON: %s", out)
	var wrapper map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &wrapper))
	assert.Equal(t, `free text with "quotes"`, wrapper["mensaje"])
}

func TestNormalize_UnserializableValueFallsBack(t *testing.T) {
	n := NewNormalizer()

	// Channels cannot be marshalled; the wrapper path must kick in.
	out := n.Normalize(make(chan int))
	assert.True(t, json.Valid([]byte(out)))
}
