package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// ConsumerID identifies one logical consumer of the engine (a chart, a
// connection, a CLI run). Each consumer is pinned to one worker.
type ConsumerID ID

func (id ConsumerID) String() string { return ID(id).String() }

// NewConsumerID creates a fresh consumer identifier
func NewConsumerID() ConsumerID {
	return ConsumerID(NewID())
}

// ParseConsumerID parses a string into ConsumerID
func ParseConsumerID(s string) (ConsumerID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("consumer ID cannot be empty")
	}
	return ConsumerID(strings.TrimSpace(s)), nil
}
