package types

import "time"

// ExecutionRecord is the journal entry for one top-level instruction chain.
type ExecutionRecord struct {
	ChainID      string      `json:"chain_id"`
	Operation    string      `json:"operation"`
	Sender       string      `json:"sender"`
	Height       int64       `json:"height"`
	Timestamp    time.Time   `json:"timestamp"`
	Success      bool        `json:"success"`
	Error        string      `json:"error,omitempty"`
	ErrorClass   ErrorClass  `json:"error_class,omitempty"`
	Instructions []string    `json:"instructions"` // rendered instructions, in execution order
	Attributes   []Attribute `json:"attributes"`
}
