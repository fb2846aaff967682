package supplier

import (
	"encoding/json"

	"CatalogSync/internal/model"
)

// Envelope is the supplier's {success, result, errors} wrapper. It is either
// Ok (Result holds the payload) or Err (Errors holds the details); Unwrap
// collapses it into the Go (value, error) pair.
type Envelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Errors  json.RawMessage `json:"errors"`
}

// Unwrap returns the result payload or a *model.VendorError.
func (e Envelope) Unwrap() (json.RawMessage, error) {
	if !e.Success {
		return nil, &model.VendorError{Errors: e.Errors}
	}
	return e.Result, nil
}

// tabular is the shape of the full catalog result.
type tabular struct {
	Columns []string            `json:"columns"`
	Rows    [][]json.RawMessage `json:"rows"`
}
