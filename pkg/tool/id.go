package tool

import "github.com/google/uuid"

func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NewIdempotencyKey returns a random key for payment processor requests.
// The processor collapses repeated requests carrying the same key.
func NewIdempotencyKey() string {
	return uuid.New().String()
}
