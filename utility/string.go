package utility

import (
	"strconv"

	"github.com/google/uuid"
)

// ToInt converts a string to an integer, tolerating a decimal point.
func ToInt(s string) int {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(f)
}

func NewUUID() string {
	return uuid.New().String()
}

// Truncate limits a string to n characters, used for security event fields.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
