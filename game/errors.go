package game

import (
	"errors"
	"fmt"
)

var (
	ErrNotPlaying      = errors.New("game is not playing")
	ErrUnknownTile     = errors.New("unknown tile")
	ErrAlreadyCaptured = errors.New("another tile is already captured")
	ErrNotCaptured     = errors.New("no tile is captured")
	ErrInvalidLevel    = errors.New("invalid level")
)

func errInvalidLevel(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidLevel, reason)
}
