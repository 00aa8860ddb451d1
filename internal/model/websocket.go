package model

// WebSocket message types
type WSMessageType string

const (
	WSMessageTypeProgress WSMessageType = "progress"
	WSMessageTypeComplete WSMessageType = "complete"
	WSMessageTypeError    WSMessageType = "error"
	WSMessageTypePing     WSMessageType = "ping"
	WSMessageTypePong     WSMessageType = "pong"
)

// WSMessage is the minimal envelope used for ping/pong.
type WSMessage struct {
	Type WSMessageType `json:"type"`
}

// WSProgressMessage is pushed to job subscribers on every progress update.
type WSProgressMessage struct {
	Type        WSMessageType `json:"type"`
	JobID       string        `json:"jobId"`
	Status      JobStatus     `json:"status"`
	Progress    int           `json:"progress"`
	CurrentStep string        `json:"currentStep,omitempty"`
}

// WSCompleteMessage carries the final result summary.
type WSCompleteMessage struct {
	Type   WSMessageType `json:"type"`
	JobID  string        `json:"jobId"`
	Result interface{}   `json:"result"`
}

// WSError describes a failed job over the socket.
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WSErrorMessage is pushed when a job ends in the error state.
type WSErrorMessage struct {
	Type  WSMessageType `json:"type"`
	JobID string        `json:"jobId"`
	Error WSError       `json:"error"`
}
