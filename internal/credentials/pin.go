package credentials

import (
	"crypto/rand"
	"math/big"
)

const pinDigits = "0123456789"

// GenerateKidPIN generates a random 4-digit PIN for a new kid profile
func GenerateKidPIN() (string, error) {
	pin := make([]byte, 4)

	for i := range pin {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(pinDigits))))
		if err != nil {
			return "", err
		}
		pin[i] = pinDigits[num.Int64()]
	}

	return string(pin), nil
}
