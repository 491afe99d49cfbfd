package api

import "github.com/goccy/go-json"

// MultiplyRequest asks for C = A×B. When A and B are omitted the server
// fills Size×Size operands with digits drawn from Seed.
type MultiplyRequest struct {
	Strategy string            `json:"strategy,omitempty"`
	DType    string            `json:"dtype,omitempty"`
	Workers  int               `json:"workers,omitempty"`
	Size     int               `json:"size,omitempty"`
	Seed     *int64            `json:"seed,omitempty"`
	A        [][]json.Number   `json:"a,omitempty"`
	B        [][]json.Number   `json:"b,omitempty"`
	Options  *StrategyOverride `json:"options,omitempty"`
}

// StrategyOverride adjusts per-request knobs that are safe to expose.
type StrategyOverride struct {
	Chunk    int    `json:"chunk,omitempty"`
	Launcher string `json:"launcher,omitempty"`
}

type MultiplyResponse struct {
	ID             string  `json:"id"`
	Object         string  `json:"object"`
	CreatedAt      int64   `json:"created_at"`
	Strategy       string  `json:"strategy"`
	DType          string  `json:"dtype"`
	Workers        int     `json:"workers"`
	Size           int     `json:"size"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	// C holds the rows of the product as [][]T for the request's dtype.
	C any `json:"c"`
}

type StrategyInfo struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

type StrategyList struct {
	Object string         `json:"object"`
	Data   []StrategyInfo `json:"data"`
}

type DeleteResultResp struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

type ErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}
