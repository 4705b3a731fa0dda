// Package domain defines the usage metering contract.
package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Action is a metered operation checked against plan ceilings.
type Action string

const (
	// ActionGeneration counts generated posts in the current calendar month.
	ActionGeneration Action = "generation"
	// ActionProfile counts voice profiles, unscoped by time.
	ActionProfile Action = "profile"
	// ActionWorkspace counts workspaces owned by a user. The subject for this
	// action is a user ID, not a workspace ID.
	ActionWorkspace Action = "workspace"
)

// ParseAction normalizes a raw action value.
func ParseAction(raw string) (Action, bool) {
	switch Action(raw) {
	case ActionGeneration, ActionProfile, ActionWorkspace:
		return Action(raw), true
	}
	return "", false
}

// Counter computes exact current consumption for a metered action. The
// subject is a workspace ID for generation/profile and a user ID for
// workspace (see ActionWorkspace).
type Counter interface {
	Count(ctx context.Context, action Action, subjectID snowflake.ID) (int64, error)
}

var ErrUnknownAction = errors.New("unknown_action")
