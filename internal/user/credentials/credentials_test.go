package credentials

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "acceso/pkg/domain-errors"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hash)

	assert.True(t, Verify("s3cret!", hash))
	assert.False(t, Verify("wrong", hash))
}

func TestHash_EmptyPasswordRejected(t *testing.T) {
	_, err := Hash("")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestHash_SaltMakesHashesUnique(t *testing.T) {
	first, err := Hash("same password")
	require.NoError(t, err)
	second, err := Hash("same password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, Verify("same password", first))
	assert.True(t, Verify("same password", second))
}

func TestVerify_MalformedHashIsMismatchNotError(t *testing.T) {
	assert.False(t, Verify("anything", "not a bcrypt hash"))
	assert.False(t, Verify("anything", ""))
}

func TestValidatePolicy(t *testing.T) {
	assert.NoError(t, ValidatePolicy("abcdef"))

	err := ValidatePolicy("abcde")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestGenerator_ProducesPolicyCompliantPasswords(t *testing.T) {
	g := NewGenerator()

	seen := make(map[string]struct{})
	for range 20 {
		pw, err := g.Generate()
		require.NoError(t, err)
		assert.NoError(t, ValidatePolicy(pw))
		for _, c := range pw {
			assert.True(t, strings.ContainsRune(passwordCharset, c), "unexpected character %q", c)
		}
		seen[pw] = struct{}{}
	}
	// 20 generations colliding would mean the source is broken.
	assert.Len(t, seen, 20)
}
