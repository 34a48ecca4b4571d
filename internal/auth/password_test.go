package auth

import (
	"regexp"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

var lowerHex64 = regexp.MustCompile(`^[0-9a-f]{64}$`)

// matches checks a stored hash the way a login path would.
func matches(t *testing.T, ps *PasswordService, hash, plaintext string) bool {
	t.Helper()
	if ps.algorithm == AlgorithmBcrypt {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
	}
	want, err := ps.Hash(plaintext)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	return want == hash
}

func newSHA256Service(t *testing.T) *PasswordService {
	t.Helper()
	ps, err := NewPasswordService(AlgorithmSHA256)
	if err != nil {
		t.Fatalf("NewPasswordService() error = %v", err)
	}
	return ps
}

// =========================================================================
// SHA-256
// =========================================================================

func TestSHA256_KnownDigest(t *testing.T) {
	ps := newSHA256Service(t)

	hash, err := ps.Hash("password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	// sha256("password")
	want := "5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8"
	if hash != want {
		t.Errorf("Hash() = %q, want %q", hash, want)
	}
}

func TestSHA256_FixedLengthLowerHex(t *testing.T) {
	ps := newSHA256Service(t)

	for _, pw := range []string{"", "a", "çok-gizli-şifre", strings.Repeat("x", 500)} {
		hash, err := ps.Hash(pw)
		if err != nil {
			t.Fatalf("Hash(%q) error = %v", pw, err)
		}
		if !lowerHex64.MatchString(hash) {
			t.Errorf("Hash(%q) = %q, want 64 lowercase hex chars", pw, hash)
		}
		if hash == pw {
			t.Errorf("Hash(%q) returned the plaintext", pw)
		}
	}
}

func TestSHA256_DeterministicPerPassword(t *testing.T) {
	ps := newSHA256Service(t)
	hash, _ := ps.Hash("secret")

	if !matches(t, ps, hash, "secret") {
		t.Error("hash does not match its own plaintext")
	}
	if matches(t, ps, hash, "wrong") {
		t.Error("hash matches a different plaintext")
	}
}

func TestNewPasswordService_DefaultsToSHA256(t *testing.T) {
	ps, err := NewPasswordService("")
	if err != nil {
		t.Fatalf("NewPasswordService(\"\") error = %v", err)
	}
	if ps.algorithm != AlgorithmSHA256 {
		t.Errorf("algorithm = %q, want %q", ps.algorithm, AlgorithmSHA256)
	}
}

func TestNewPasswordService_UnknownAlgorithm(t *testing.T) {
	if _, err := NewPasswordService("md5"); err == nil {
		t.Error("NewPasswordService(\"md5\") should fail")
	}
}

// =========================================================================
// BCRYPT
// =========================================================================

func TestBcrypt_HashMatchesPlaintext(t *testing.T) {
	ps := NewPasswordServiceForTest(bcrypt.MinCost)

	hash, err := ps.Hash("my-secret-password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("Hash() does not look like a bcrypt hash: %q", hash)
	}
	if !matches(t, ps, hash, "my-secret-password") {
		t.Error("bcrypt hash does not match its own plaintext")
	}
	if matches(t, ps, hash, "other") {
		t.Error("bcrypt hash matches a different plaintext")
	}
}

func TestBcrypt_SaltsEveryHash(t *testing.T) {
	ps := NewPasswordServiceForTest(bcrypt.MinCost)

	hash1, _ := ps.Hash("same-password")
	hash2, _ := ps.Hash("same-password")
	if hash1 == hash2 {
		t.Error("Hash() produced identical hashes for the same password")
	}
}

func TestBcrypt_RejectsLongPasswords(t *testing.T) {
	ps := NewPasswordServiceForTest(bcrypt.MinCost)

	if _, err := ps.Hash(strings.Repeat("a", 73)); err == nil {
		t.Error("Hash() should reject passwords over 72 bytes")
	}
}
