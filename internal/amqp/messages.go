package amqp

import (
	"encoding/json"
	"time"
)

// ExpenseEventMessage carries a full snapshot of an expense mutation so the
// audit worker can record it without a round trip to the store.
type ExpenseEventMessage struct {
	Action    string    `json:"action"`
	ExpenseID int64     `json:"expenseId"`
	UserID    *int64    `json:"userId,omitempty"`
	Category  string    `json:"category"`
	Amount    float64   `json:"amount"`
	Date      string    `json:"date"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExpenseEventMessage stamps an event message with the current time.
func NewExpenseEventMessage(action string, expenseID int64, userID *int64, category string, amount float64, date string) *ExpenseEventMessage {
	return &ExpenseEventMessage{
		Action:    action,
		ExpenseID: expenseID,
		UserID:    userID,
		Category:  category,
		Amount:    amount,
		Date:      date,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *ExpenseEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventMessageFromJSON creates a message from JSON bytes.
func ExpenseEventMessageFromJSON(data []byte) (*ExpenseEventMessage, error) {
	var msg ExpenseEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
