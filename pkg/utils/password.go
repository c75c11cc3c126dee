package utils

import (
	"golang.org/x/crypto/bcrypt"
)

// HashPassword runs on the request goroutine; bcrypt is CPU-bound but the
// runtime keeps scheduling other requests while it works.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPassword(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}
