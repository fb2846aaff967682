package supplier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"CatalogSync/internal/model"
)

// Fetcher defines the interface for fetching the supplier catalog.
type Fetcher interface {
	FetchFullCatalog(ctx context.Context) ([]model.Product, error)
	Name() string
}

// FetchFullCatalog downloads the full catalog and zips every row against
// the column list, preserving row order.
func (c *Client) FetchFullCatalog(ctx context.Context) ([]model.Product, error) {
	result, err := c.get(ctx, "/full_catalog", "")
	if err != nil {
		return nil, fmt.Errorf("fetch full catalog: %w", err)
	}
	products, err := DecodeCatalog(result)
	if err != nil {
		return nil, err
	}
	c.log.Info().Int("count", len(products)).Msg("catalog fetched")
	return products, nil
}

// DecodeCatalog converts a {columns, rows} result into products.
func DecodeCatalog(result json.RawMessage) ([]model.Product, error) {
	var t tabular
	if err := json.Unmarshal(result, &t); err != nil {
		return nil, fmt.Errorf("%w: catalog result is not {columns, rows}: %v", model.ErrDataContract, err)
	}
	if len(t.Columns) == 0 && len(t.Rows) > 0 {
		return nil, fmt.Errorf("%w: catalog has rows but no columns", model.ErrDataContract)
	}

	products := make([]model.Product, 0, len(t.Rows))
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return nil, fmt.Errorf("%w: row %d has %d values for %d columns", model.ErrDataContract, i, len(row), len(t.Columns))
		}
		var p model.Product
		for j, col := range t.Columns {
			set, ok := columnSetters[col]
			if !ok {
				continue
			}
			if err := set(&p, row[j]); err != nil {
				return nil, fmt.Errorf("%w: row %d column %q: %v", model.ErrDataContract, i, col, err)
			}
		}
		if p.PartNumber == "" {
			return nil, fmt.Errorf("%w: row %d has no PartNumber", model.ErrDataContract, i)
		}
		products = append(products, p)
	}
	return products, nil
}

type setter func(p *model.Product, raw json.RawMessage) error

func textField(dst func(*model.Product) *string) setter {
	return func(p *model.Product, raw json.RawMessage) error {
		s, err := asString(raw)
		*dst(p) = s
		return err
	}
}

func numberField(dst func(*model.Product) *float64) setter {
	return func(p *model.Product, raw json.RawMessage) error {
		f, err := asFloat(raw)
		*dst(p) = f
		return err
	}
}

var columnSetters = map[string]setter{
	"PartNumber":   textField(func(p *model.Product) *string { return &p.PartNumber }),
	"Description":  textField(func(p *model.Product) *string { return &p.Description }),
	"Title":        textField(func(p *model.Product) *string { return &p.Title }),
	"Category":     textField(func(p *model.Product) *string { return &p.Category }),
	"AltCode":      textField(func(p *model.Product) *string { return &p.AltCode }),
	"Model":        textField(func(p *model.Product) *string { return &p.Model }),
	"Manufacturer": textField(func(p *model.Product) *string { return &p.Manufacturer }),
	"ModifiedOn":   textField(func(p *model.Product) *string { return &p.ModifiedOn }),
	"AddedOn":      textField(func(p *model.Product) *string { return &p.AddedOn }),
	"ETA":          textField(func(p *model.Product) *string { return &p.ETA }),
	"Available":    numberField(func(p *model.Product) *float64 { return &p.Available }),
	"OnOrder":      numberField(func(p *model.Product) *float64 { return &p.OnOrder }),
	"CADmap":       numberField(func(p *model.Product) *float64 { return &p.CADmap }),
	"USDmap":       numberField(func(p *model.Product) *float64 { return &p.USDmap }),
	"Price":        numberField(func(p *model.Product) *float64 { return &p.Price }),
	"Discontinued": func(p *model.Product, raw json.RawMessage) error {
		b, err := asBool(raw)
		p.Discontinued = b
		return err
	},
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

func asString(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", fmt.Errorf("expected text, got %s", string(raw))
}

func asFloat(raw json.RawMessage) (float64, error) {
	if isNull(raw) {
		return 0, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, nil
		}
		return strconv.ParseFloat(s, 64)
	}
	return 0, fmt.Errorf("expected number, got %s", string(raw))
}

func asBool(raw json.RawMessage) (bool, error) {
	if isNull(raw) {
		return false, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f != 0, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.ParseBool(strings.TrimSpace(s))
	}
	return false, fmt.Errorf("expected boolean, got %s", string(raw))
}
