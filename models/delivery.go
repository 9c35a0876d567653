package models

import (
	"time"

	"github.com/lib/pq"
)

// Delivery は webhook 1回分の処理記録です。
type Delivery struct {
	ID             string         `json:"id"`
	RequestID      string         `json:"request_id"`
	UID            string         `json:"uid"`
	ConversationID string         `json:"conversation_id"`
	Date           string         `json:"date"`
	Documents      pq.StringArray `json:"documents"`
	CreatedAt      time.Time      `json:"created_at"`
}
