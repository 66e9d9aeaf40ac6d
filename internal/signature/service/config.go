package service

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Config holds the protocol windows. Attempt counters live as long as a block.
type Config struct {
	CodeTTL       time.Duration
	MaxAttempts   int
	BlockDuration time.Duration
	BcryptCost    int
}

func DefaultConfig() Config {
	return Config{
		CodeTTL:       300 * time.Second,
		MaxAttempts:   3,
		BlockDuration: 900 * time.Second,
		BcryptCost:    bcrypt.DefaultCost,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.CodeTTL <= 0 {
		c.CodeTTL = d.CodeTTL
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.BlockDuration <= 0 {
		c.BlockDuration = d.BlockDuration
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		c.BcryptCost = d.BcryptCost
	}
	return c
}
