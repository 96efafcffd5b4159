package models

// MSubscribeCommand is sent by websocket clients to follow one pair.
type MSubscribeCommand struct {
	Command        string `json:"command"`
	SymbolX        string `json:"symbol_x"`
	SymbolY        string `json:"symbol_y"`
	Timeframe      string `json:"timeframe"`
	ZWindow        int    `json:"z_window"`
	CorrWindow     int    `json:"corr_window"`
	Stationarity   bool   `json:"stationarity"`
	RefreshSeconds int    `json:"refresh_seconds"`
}

// -----------------------------------------------------------------------------

// MPushMessage is written to websocket clients.
type MPushMessage struct {
	Type    string      `json:"type"` // "RESULT" or "ERROR"
	Key     string      `json:"key"`
	Payload interface{} `json:"payload,omitempty"`
	Error   *MErrorBody `json:"error,omitempty"`
}

// MErrorBody is the JSON error shape shared by HTTP and websocket replies.
type MErrorBody struct {
	Kind    string `json:"error"`
	Message string `json:"message"`
}
