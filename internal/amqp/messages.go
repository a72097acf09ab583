package amqp

import (
	"encoding/json"
	"time"
)

// LedgerChangedMessage announces that the ledger mutated. It carries only a
// monotonic revision and a timestamp; the backup worker reads the actual
// snapshot from the database, so a lost message costs nothing but latency.
type LedgerChangedMessage struct {
	Revision  int64     `json:"revision"`
	Operation string    `json:"operation"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerChangedMessage(revision int64, operation string) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		Revision:  revision,
		Operation: operation,
		Timestamp: time.Now(),
	}
}

func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
