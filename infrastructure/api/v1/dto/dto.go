// Package dto holds the JSON bodies of the v1 HTTP API.
package dto

// TrialData is one trial row in a structured search response.
type TrialData struct {
	NCTID      string `json:"nct_id"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	Phase      string `json:"phase"`
	Conditions string `json:"conditions"`
}

// TrialsResponse is the body of GET /api/v1/trials. Message is set when no
// trial matched.
type TrialsResponse struct {
	Data    []TrialData `json:"data"`
	Message string      `json:"message,omitempty"`
}

// ProtocolMatch is one retrieved protocol document.
type ProtocolMatch struct {
	NCTID    string  `json:"nct_id"`
	Score    float64 `json:"score"`
	Document string  `json:"document"`
}

// ProtocolsResponse is the body of GET /api/v1/protocols. Context carries the
// same text the protocol details tool returns.
type ProtocolsResponse struct {
	Context string          `json:"context"`
	Found   bool            `json:"found"`
	Matches []ProtocolMatch `json:"matches"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Trials    int64  `json:"trials"`
	Protocols int64  `json:"protocols"`
}
