package main

import (
	"strings"

	"github.com/gofrs/uuid"
)

var _ UIDHandler = (*IDsHandler)(nil) // ensure IDsHandler implements UIDHandler.

// UIDHandler is an interface for getting and checking uids.
type UIDHandler interface {
	Generate(prefix string) string
	IsValid(id, prefix string) bool
}

// IDsHandler implements the UIDHandler interface.
type IDsHandler struct{}

// NewIDsHandler returns a ready to use IDsHandler.
func NewIDsHandler() *IDsHandler {
	return &IDsHandler{}
}

// Generate provides a random unique identifier. A non empty
// prefix is joined to the uuid with a colon.
func (idh *IDsHandler) Generate(prefix string) string {
	id := uuid.Must(uuid.NewV4()).String()
	if prefix == "" {
		return id
	}
	return prefix + ":" + id
}

// IsValid checks if a given string is a valid uuid after removal of custom prefix.
func (idh *IDsHandler) IsValid(id, prefix string) bool {
	if prefix != "" {
		if !strings.HasPrefix(id, prefix+":") {
			return false
		}
		id = strings.TrimPrefix(id, prefix+":")
	}
	return uuid.FromStringOrNil(id) != uuid.Nil
}
