package amqp

import (
	"encoding/json"
	"time"
)

// Event kinds carried on the export queue.
const (
	KindTransactionSync   = "transaction.sync"
	KindTransactionDelete = "transaction.delete"
)

// TransactionEvent is a lightweight export message: it carries only the
// transaction id and kind; the worker fetches the full record from storage.
type TransactionEvent struct {
	Kind      string    `json:"kind"`
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSyncEvent creates an event announcing a new or updated transaction.
func NewSyncEvent(id, ownerID string) *TransactionEvent {
	return &TransactionEvent{
		Kind:      KindTransactionSync,
		ID:        id,
		OwnerID:   ownerID,
		Timestamp: time.Now().UTC(),
	}
}

// NewDeleteEvent creates an event announcing a deleted transaction.
func NewDeleteEvent(id, ownerID string) *TransactionEvent {
	return &TransactionEvent{
		Kind:      KindTransactionDelete,
		ID:        id,
		OwnerID:   ownerID,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes an event from JSON bytes.
func EventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
