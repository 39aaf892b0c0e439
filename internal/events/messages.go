// Package events publishes and consumes domain events over AMQP.
//
// Replicas use the expense.created and group.members_added events to drop
// cached balances for a group after another replica changed it.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Topic routing keys.
const (
	RoutingKeyExpenseCreated = "expense.created"
	RoutingKeyMembersAdded   = "group.members_added"
)

// ExpenseCreated is a lightweight notification; consumers re-read the
// group from the store instead of trusting the payload.
type ExpenseCreated struct {
	ExpenseID string    `json:"expense_id"`
	GroupID   string    `json:"group_id"`
	Payer     string    `json:"payer"`
	Origin    string    `json:"origin"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExpenseCreated builds an event stamped with the current time.
func NewExpenseCreated(expenseID, groupID, payer, origin string) *ExpenseCreated {
	return &ExpenseCreated{
		ExpenseID: expenseID,
		GroupID:   groupID,
		Payer:     payer,
		Origin:    origin,
		Timestamp: time.Now().UTC(),
	}
}

func (m *ExpenseCreated) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseCreatedFromJSON decodes an event. A body without a group ID is
// rejected since it cannot drive an invalidation.
func ExpenseCreatedFromJSON(data []byte) (*ExpenseCreated, error) {
	var msg ExpenseCreated
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", RoutingKeyExpenseCreated, err)
	}
	if msg.GroupID == "" {
		return nil, errors.New("decode " + RoutingKeyExpenseCreated + ": missing group_id")
	}
	return &msg, nil
}

// MembersAdded announces new members of a group.
type MembersAdded struct {
	GroupID   string    `json:"group_id"`
	Members   []string  `json:"members"`
	Origin    string    `json:"origin"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMembersAdded builds an event stamped with the current time.
func NewMembersAdded(groupID string, members []string, origin string) *MembersAdded {
	return &MembersAdded{
		GroupID:   groupID,
		Members:   members,
		Origin:    origin,
		Timestamp: time.Now().UTC(),
	}
}

func (m *MembersAdded) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MembersAddedFromJSON decodes an event; the group ID is required.
func MembersAddedFromJSON(data []byte) (*MembersAdded, error) {
	var msg MembersAdded
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", RoutingKeyMembersAdded, err)
	}
	if msg.GroupID == "" {
		return nil, errors.New("decode " + RoutingKeyMembersAdded + ": missing group_id")
	}
	return &msg, nil
}

// GroupChange is what a consumer needs from any group event: which group
// changed and which replica changed it.
type GroupChange struct {
	RoutingKey string
	GroupID    string
	Origin     string
}

// DecodeGroupChange decodes a delivery body by its routing key.
func DecodeGroupChange(routingKey string, body []byte) (*GroupChange, error) {
	switch routingKey {
	case RoutingKeyExpenseCreated:
		msg, err := ExpenseCreatedFromJSON(body)
		if err != nil {
			return nil, err
		}
		return &GroupChange{RoutingKey: routingKey, GroupID: msg.GroupID, Origin: msg.Origin}, nil
	case RoutingKeyMembersAdded:
		msg, err := MembersAddedFromJSON(body)
		if err != nil {
			return nil, err
		}
		return &GroupChange{RoutingKey: routingKey, GroupID: msg.GroupID, Origin: msg.Origin}, nil
	default:
		return nil, fmt.Errorf("unknown routing key %q", routingKey)
	}
}
