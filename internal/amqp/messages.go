package amqp

import (
	"encoding/json"
	"time"
)

// Operations carried by change messages.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// RecordChangeMessage announces one mutation. It carries only identifiers;
// consumers fetch whatever record state they need from the owning backend.
type RecordChangeMessage struct {
	Collection string    `json:"collection"`
	RecordID   string    `json:"recordId"`
	UserID     string    `json:"userId,omitempty"`
	Op         string    `json:"op"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewRecordChangeMessage builds a change message stamped with the current time.
func NewRecordChangeMessage(collection, recordID, userID, op string) *RecordChangeMessage {
	return &RecordChangeMessage{
		Collection: collection,
		RecordID:   recordID,
		UserID:     userID,
		Op:         op,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *RecordChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordChangeMessageFromJSON parses a message from JSON bytes.
func RecordChangeMessageFromJSON(data []byte) (*RecordChangeMessage, error) {
	var msg RecordChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
