package core

import (
	"errors"
	"fmt"

	"github.com/segmentio/ksuid"
)

// ID is a sortable, time-prefixed identifier backed by KSUID.
type ID string

func (id ID) String() string {
	return string(id)
}

func (id ID) IsZero() bool {
	return id == ""
}

// NewID generates a new time+random identifier.
func NewID() (ID, error) {
	k, err := ksuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate ID: %w", err)
	}
	return ID(k.String()), nil
}

func MustNewID() ID {
	id, err := NewID()
	if err != nil {
		panic(err)
	}
	return id
}

func ParseID(s string) (ID, error) {
	if s == "" {
		return "", errors.New("empty ID")
	}
	k, err := ksuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid ID format: %w", err)
	}
	return ID(k.String()), nil
}
