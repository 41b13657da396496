package util

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	passwordLetters = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"
	passwordDigits  = "23456789"
)

// RandomPassword returns length characters drawn with crypto/rand from an
// alphabet without look-alike glyphs. It always holds a letter and a digit.
func RandomPassword(length int) (string, error) {
	if length < 2 {
		return "", fmt.Errorf("password length %d is too short", length)
	}

	alphabet := passwordLetters + passwordDigits
	out := make([]byte, length)
	for i := range out {
		set := alphabet
		switch i {
		case 0:
			set = passwordLetters
		case 1:
			set = passwordDigits
		}
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
		if err != nil {
			return "", fmt.Errorf("failed to read random: %w", err)
		}
		out[i] = set[n.Int64()]
	}
	return string(out), nil
}
