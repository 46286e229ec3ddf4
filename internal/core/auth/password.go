package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"caseworker-tasks/pkg/utils"
)

// DefaultCost keeps a login well under a second on ordinary hardware.
const DefaultCost = 12

type Hasher struct {
	Cost int
}

func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Hasher{Cost: cost}
}

func (h *Hasher) Hash(password string) (string, error) {
	s, err := utils.HashPassword(password, h.Cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return s, nil
}

func (h *Hasher) Verify(password, hash string) bool {
	return utils.CheckPassword(password, hash)
}
