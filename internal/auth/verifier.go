package auth

import "golang.org/x/crypto/bcrypt"

// CredentialVerifier checks a plaintext password against a stored hash.
// Hashing mechanics stay behind this boundary.
type CredentialVerifier interface {
	Verify(password, hash string) bool
}

type BcryptVerifier struct{}

func (BcryptVerifier) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// HashPassword is used by seeding and account tooling.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
