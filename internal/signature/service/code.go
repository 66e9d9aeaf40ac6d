package service

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

const CodeLength = 6

var ten = big.NewInt(10)

// generateCode draws each digit independently; leading zeros are kept.
func generateCode(r io.Reader) (string, error) {
	buf := make([]byte, CodeLength)
	for i := range buf {
		n, err := rand.Int(r, ten)
		if err != nil {
			return "", fmt.Errorf("draw code digit: %w", err)
		}
		buf[i] = '0' + byte(n.Int64())
	}
	return string(buf), nil
}
