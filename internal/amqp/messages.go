package amqp

import (
	"encoding/json"
	"time"
)

// MatrixSavedMessage announces that a (company, year) matrix was persisted.
// It carries only the scope; the worker refetches the matrix from the store,
// so a stale duplicate delivery is harmless.
type MatrixSavedMessage struct {
	CompanyID int64     `json:"companyId"`
	Year      int       `json:"year"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMatrixSavedMessage creates a message for the given scope
func NewMatrixSavedMessage(companyID int64, year int) *MatrixSavedMessage {
	return &MatrixSavedMessage{
		CompanyID: companyID,
		Year:      year,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *MatrixSavedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MatrixSavedMessageFromJSON creates a message from JSON bytes
func MatrixSavedMessageFromJSON(data []byte) (*MatrixSavedMessage, error) {
	var msg MatrixSavedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
