package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Transaction event actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// TransactionEvent announces a change to a stored transaction. It carries
// only identifiers; consumers load the current state from the database.
type TransactionEvent struct {
	EventID       string    `json:"event_id"`
	Action        string    `json:"action"`
	TransactionID int64     `json:"transaction_id"`
	UserID        int64     `json:"user_id"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionEvent(action string, transactionID, userID int64) *TransactionEvent {
	return &TransactionEvent{
		EventID:       uuid.NewString(),
		Action:        action,
		TransactionID: transactionID,
		UserID:        userID,
		Timestamp:     time.Now(),
	}
}

func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes an event and rejects unknown actions.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var evt TransactionEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, err
	}
	switch evt.Action {
	case ActionCreated, ActionUpdated, ActionDeleted:
	default:
		return nil, fmt.Errorf("unknown event action %q", evt.Action)
	}
	if evt.TransactionID <= 0 {
		return nil, fmt.Errorf("event %s has no transaction id", evt.EventID)
	}
	return &evt, nil
}
