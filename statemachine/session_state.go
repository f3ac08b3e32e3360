package statemachine

import (
	"fmt"
	"slices"
	"strings"

	"larica/models"
)

// Actors that may drive a session transition
const (
	ActorSystem   = "system"
	ActorProvider = "provider"
)

// Transition defines a valid session status change and who can perform it
type Transition struct {
	From  models.SessionStatus `json:"from"`
	To    models.SessionStatus `json:"to"`
	Actor string               `json:"actor"`
}

// validTransitions is the authoritative session state machine definition
var validTransitions = []Transition{
	// Process start: subscribe to the provider
	{From: models.StatusUninitialized, To: models.StatusLoading, Actor: ActorSystem},
	// First provider notification settles the session
	{From: models.StatusLoading, To: models.StatusAuthenticated, Actor: ActorProvider},
	{From: models.StatusLoading, To: models.StatusAnonymous, Actor: ActorProvider},
	// Login / register
	{From: models.StatusAnonymous, To: models.StatusAuthenticated, Actor: ActorProvider},
	// Logout, token expiry, sign-out pushed by the provider
	{From: models.StatusAuthenticated, To: models.StatusAnonymous, Actor: ActorProvider},
	// Profile refresh
	{From: models.StatusAuthenticated, To: models.StatusAuthenticated, Actor: ActorProvider},
}

// edgesFrom lists the transitions leaving status, in table order
func edgesFrom(status models.SessionStatus) []Transition {
	var edges []Transition
	for _, t := range validTransitions {
		if t.From == status {
			edges = append(edges, t)
		}
	}
	return edges
}

// ValidTransitionsFrom returns the distinct statuses reachable from status
func ValidTransitionsFrom(status models.SessionStatus) []models.SessionStatus {
	var nexts []models.SessionStatus
	for _, t := range edgesFrom(status) {
		if !slices.Contains(nexts, t.To) {
			nexts = append(nexts, t.To)
		}
	}
	return nexts
}

// CanTransition reports whether actor may move a session from one status
// to another
func CanTransition(from, to models.SessionStatus, actor string) error {
	for _, t := range edgesFrom(from) {
		if t.To == to && t.Actor == actor {
			return nil
		}
	}
	return fmt.Errorf("invalid transition: %s → %s is not allowed for actor %q; valid transitions from %s are: %s",
		from, to, actor, from, describeValidFrom(from))
}

func describeValidFrom(status models.SessionStatus) string {
	nexts := ValidTransitionsFrom(status)
	if len(nexts) == 0 {
		return "none"
	}
	names := make([]string, len(nexts))
	for i, s := range nexts {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

// GetAllTransitions returns the full state machine for documentation
func GetAllTransitions() []Transition {
	return validTransitions
}
