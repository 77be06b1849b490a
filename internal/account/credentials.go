package account

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Password handling follows spec.md §9's Open Question literally ("mixes
// salted and unsalted hashes... specifying as observed") rather than
// inventing a single scheme: Login's challenge-response needs a
// deterministic digest it can combine with a per-attempt salt, which a
// randomly-salted bcrypt hash cannot provide; Unregister and
// PasswordChange's "verify old password" step has no such constraint and
// gets bcrypt's hardening. See DESIGN.md.

// deriveCredentials computes both stored representations of a client
// password hash: a bcrypt hash for direct verification, and a
// deterministic sha256 hex digest ("login verifier") for the salted
// challenge-response in Login.
func deriveCredentials(clientPwHash string) (bcryptHash, loginVerifier string, err error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(clientPwHash), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("account: hashing password: %w", err)
	}
	sum := sha256.Sum256([]byte(clientPwHash))
	return string(hashed), hex.EncodeToString(sum[:]), nil
}

// verifyPassword checks a client-submitted password hash against the
// stored bcrypt hash (Unregister, PasswordChange's old-password check).
func verifyPassword(bcryptHash, candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(bcryptHash), []byte(candidate)) == nil
}

// combineWithSalt implements the Login challenge: hash(storedVerifier || salt).
func combineWithSalt(loginVerifier string, salt []byte) string {
	h := sha256.New()
	h.Write([]byte(loginVerifier))
	h.Write(salt)
	return hex.EncodeToString(h.Sum(nil))
}

// verifyLogin reports whether saltedHash matches hash(storedVerifier||salt)
// in constant time (spec.md §4.3).
func verifyLogin(loginVerifier string, salt []byte, saltedHash string) bool {
	expected := combineWithSalt(loginVerifier, salt)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(saltedHash)) == 1
}

func hashEmail(email string) string {
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:])
}
