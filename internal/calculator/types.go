package calculator

// KeysRequest is the JSON body for POST /calculator/sessions/{id}/keys.
type KeysRequest struct {
	Keys []string `json:"keys"` // keypad labels, e.g. ["5", "+", "3", "="]
}

// SessionResponse is the JSON response for all session endpoints.
type SessionResponse struct {
	SessionID string  `json:"session_id"`
	Display   string  `json:"display"`
	Previous  *string `json:"previous"`
	Operator  *string `json:"operator"`
	Overwrite bool    `json:"overwrite"`
	Error     bool    `json:"error"`
}

// EvaluateRequest is the JSON body for POST /calculator/evaluate.
type EvaluateRequest struct {
	A  string `json:"a"`
	B  string `json:"b"`
	Op string `json:"op"` // "+", "-", "*", "/"
}

// EvaluateResponse is the JSON response for POST /calculator/evaluate.
type EvaluateResponse struct {
	A      string `json:"a"`
	B      string `json:"b"`
	Op     string `json:"op"`
	Result string `json:"result"`
	Error  bool   `json:"error"`
}

func newSessionResponse(s Session) SessionResponse {
	resp := SessionResponse{
		SessionID: s.ID,
		Display:   s.State.Current,
		Previous:  s.State.Previous,
		Overwrite: s.State.Overwrite,
		Error:     s.State.IsError(),
	}
	if s.State.Operator != OpNone {
		op := string(s.State.Operator)
		resp.Operator = &op
	}
	return resp
}
