package credentials

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"

	"golang.org/x/crypto/bcrypt"

	dErrors "acceso/pkg/domain-errors"
)

// MinPasswordLength is the shortest password accepted for any account.
const MinPasswordLength = 6

// passwordCharset is the alphabet for generated passwords.
const passwordCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!@#$%"

// generatedLength is the length of generated passwords.
const generatedLength = 12

// Hash creates a bcrypt hash of the provided password. bcrypt embeds a random
// salt per call, so hashing the same password twice yields different hashes.
func Hash(password string) (string, error) {
	if password == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "password cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "password is too long")
		}
		return "", fmt.Errorf("could not hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether the plaintext password matches the bcrypt hash.
// Malformed hashes and any other comparison failure count as a mismatch;
// callers get a plain yes or no and nothing else.
func Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePolicy checks a candidate password against the account policy.
func ValidatePolicy(password string) error {
	if len(password) < MinPasswordLength {
		return dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	return nil
}

// Generator produces random temporary passwords for account resets.
type Generator struct {
	rand io.Reader
}

// NewGenerator creates a Generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{rand: rand.Reader}
}

// NewGeneratorWithSource creates a Generator reading randomness from r.
// Used by tests to make output deterministic.
func NewGeneratorWithSource(r io.Reader) *Generator {
	return &Generator{rand: r}
}

// Generate returns a random password drawn uniformly from the charset.
func (g *Generator) Generate() (string, error) {
	out := make([]byte, generatedLength)
	alphabet := big.NewInt(int64(len(passwordCharset)))
	for i := range out {
		n, err := rand.Int(g.rand, alphabet)
		if err != nil {
			return "", fmt.Errorf("could not generate password: %w", err)
		}
		out[i] = passwordCharset[n.Int64()]
	}
	return string(out), nil
}
