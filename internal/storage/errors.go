package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound - игрок не зарегистрирован.
	ErrNotFound = errors.New("player not found")
	// ErrAlreadyRegistered - повторная регистрация, счётчики не тронуты.
	ErrAlreadyRegistered = errors.New("player already registered")
	// ErrStoreUnavailable - база недоступна или запрос упал.
	ErrStoreUnavailable = errors.New("store unavailable")
)

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

func checkPenalty(penaltyMinutes int) error {
	if penaltyMinutes < 0 {
		return fmt.Errorf("record death: negative penalty %d minutes", penaltyMinutes)
	}
	return nil
}
