package models

// Base64Response is returned instead of a binary download when options.base64 is set.
type Base64Response struct {
	Data     string `json:"data"`
	Type     string `json:"type"`
	Filename string `json:"filename"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// HealthResponse is the response for GET /api/health.
type HealthResponse struct {
	Status  string      `json:"status"` // "healthy" or "idle"
	Uptime  string      `json:"uptime"`
	Engine  EngineStats `json:"engine"`
	Version string      `json:"version"`
}

// EngineStats reports the state of the rendering engine.
type EngineStats struct {
	Running    bool  `json:"running"`
	Launches   int64 `json:"launches"`
	PID        int   `json:"pid,omitempty"`
	ActiveTabs int   `json:"active_tabs"`
}

// InvoiceResponse is the response for POST /generate/invoice.
type InvoiceResponse struct {
	Status   string `json:"status"` // "success"
	Data     string `json:"data"`
	MimeType string `json:"mime_type"`
}
