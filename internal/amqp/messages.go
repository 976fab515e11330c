package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// ExpenseSyncMessage asks the worker to push one expense version to the
// spreadsheet. The worker loads the expense itself.
type ExpenseSyncMessage struct {
	ID        string    `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseSyncMessage(id string, version int64) *ExpenseSyncMessage {
	return &ExpenseSyncMessage{
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseSyncMessageFromJSON decodes a message and rejects one without an ID.
func ExpenseSyncMessageFromJSON(data []byte) (*ExpenseSyncMessage, error) {
	var msg ExpenseSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, errors.New("sync message without expense id")
	}
	return &msg, nil
}
