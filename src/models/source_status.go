package models

// MSourceStatus describes one ingestion source for the control surfaces.
type MSourceStatus struct {
	Name       string   `json:"name"`
	IsRealTime bool     `json:"is_realtime"`
	Symbols    []string `json:"symbols"`
}

// MHealthStatus is reported by the health endpoints.
type MHealthStatus struct {
	Status  string `json:"status"` // "ok" or "degraded"
	Store   string `json:"store"`
	Backend string `json:"backend"`
	Sources int    `json:"sources"`
}
