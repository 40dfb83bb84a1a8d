package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"ged-go/internal/errclass"
)

// Service computes and validates content version tokens.
//
// A token is the hex SHA-256 of a file's bytes. Tokens have no ordering,
// only equality: two reads of an unmodified file yield the same token, and
// any content change yields a different one. Modification time and size do
// not participate, so tokens are stable across copies and process restarts.
type Service struct{}

func NewService() *Service { return &Service{} }

// ComputeToken returns the version token for the file at path.
// Returns errclass.ErrNotFound if the path does not exist.
func (s *Service) ComputeToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errclass.ErrNotFound.WithMessagef("file not found: %s", path)
		}
		return "", fmt.Errorf("reading file for fingerprint: %w", err)
	}
	return TokenFor(data), nil
}

// Validate recomputes the current token for path and returns
// errclass.ErrConflict if it differs from token. No side effects; safe to
// call arbitrarily often.
func (s *Service) Validate(path, token string) error {
	current, err := s.ComputeToken(path)
	if err != nil {
		return err
	}
	if current != token {
		return errclass.ErrConflict.WithMessagef("file changed since token was computed: %s", path)
	}
	return nil
}

// TokenFor returns the version token for raw content bytes.
func TokenFor(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
