package utils

import (
	"github.com/google/uuid"
)

// IsDatasetID reports whether id has the GUID form the analytics API assigns to datasets.
// Only the canonical 36 character form is accepted; braced and urn forms are not.
func IsDatasetID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// NewLoginState returns an unguessable value for the OAuth state parameter
func NewLoginState() string {
	return uuid.NewString()
}
