package service

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode(t *testing.T) {
	t.Run("six ascii digits", func(t *testing.T) {
		for range 50 {
			code, err := generateCode(rand.Reader)
			require.NoError(t, err)
			require.Len(t, code, CodeLength)
			for _, c := range code {
				assert.True(t, c >= '0' && c <= '9', code)
			}
		}
	})

	t.Run("leading zeros are kept", func(t *testing.T) {
		code, err := generateCode(bytes.NewReader(make([]byte, 64)))
		require.NoError(t, err)
		assert.Equal(t, "000000", code)
	})

	t.Run("reader failure", func(t *testing.T) {
		_, err := generateCode(iotest.ErrReader(errors.New("no entropy")))
		assert.Error(t, err)
	})
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{BcryptCost: 99}.withDefaults()
	assert.Equal(t, DefaultConfig(), cfg)
}
