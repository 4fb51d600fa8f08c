package domain

import "time"

// Message is a single chat message in a project channel.
type Message struct {
	ID      string    `json:"id"`
	Channel string    `json:"channel"`
	Author  string    `json:"author"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sentAt"`
}
