package util

import (
	"golang.org/x/crypto/bcrypt"
)

// bcrypt work factor; 10 is the floor for stored credentials
const bcryptCost = 10

// HashPassword hashes a plain text password with a per-call salt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// VerifyPassword checks if a plain text password matches a hashed password
func VerifyPassword(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}
