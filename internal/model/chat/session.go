package chat

import "time"

// Session is the single conversation owned by the running process. The credential never
// leaves the server; clients only see whether one is configured.
type Session struct {
	ID         string    `json:"sessionId"`
	CreatedAt  time.Time `json:"createdAt"`
	Configured bool      `json:"configured"`
	Turns      []Turn    `json:"turns"`
}
