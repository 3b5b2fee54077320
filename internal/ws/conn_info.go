package ws

import "time"

type ConnInfo struct {
	ConnID      string
	Kind        string
	UserID      int64
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
