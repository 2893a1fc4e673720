package store

import (
	"encoding/json"
	"fmt"

	"github.com/datalens-tech/datalens-backend-sub013/internal/datatype"
	"github.com/datalens-tech/datalens-backend-sub013/internal/dialect"
	"github.com/datalens-tech/datalens-backend-sub013/internal/ir"
	"github.com/datalens-tech/datalens-backend-sub013/internal/translation"
)

// marshalArgTypes converts per-position types to canonical JSON TEXT.
func marshalArgTypes(positions [][]datatype.DataType) (string, error) {
	data, err := ir.MarshalCanonical(argTypesValue(positions))
	if err != nil {
		return "", fmt.Errorf("marshal arg types: %w", err)
	}
	return string(data), nil
}

// marshalTemplates converts templates to canonical JSON TEXT.
func marshalTemplates(ts []Template) (string, error) {
	data, err := ir.MarshalCanonical(templatesValue(ts))
	if err != nil {
		return "", fmt.Errorf("marshal templates: %w", err)
	}
	return string(data), nil
}

// marshalScopes stores scopes by name so the column survives renumbering of
// the flags.
func marshalScopes(s translation.Scope) (string, error) {
	data, err := ir.MarshalCanonical(ir.Strings(s.Names()...))
	if err != nil {
		return "", fmt.Errorf("marshal scopes: %w", err)
	}
	return string(data), nil
}

func unmarshalArgTypes(data string) ([][]datatype.DataType, error) {
	var positions [][]datatype.DataType
	if err := json.Unmarshal([]byte(data), &positions); err != nil {
		return nil, fmt.Errorf("unmarshal arg types: %w", err)
	}
	if positions == nil {
		positions = [][]datatype.DataType{}
	}
	for i := range positions {
		if positions[i] == nil {
			positions[i] = []datatype.DataType{}
		}
	}
	return positions, nil
}

func unmarshalTemplates(data string) ([]Template, error) {
	var raw []struct {
		Dialects string `json:"dialects"`
		Template string `json:"template"`
	}
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("unmarshal templates: %w", err)
	}
	out := make([]Template, len(raw))
	for i, r := range raw {
		d, err := dialect.ParseList(r.Dialects)
		if err != nil {
			return nil, fmt.Errorf("unmarshal templates: %w", err)
		}
		out[i] = Template{Dialects: d, Source: r.Template}
	}
	return out, nil
}

func unmarshalScopes(data string) (translation.Scope, error) {
	var names []string
	if err := json.Unmarshal([]byte(data), &names); err != nil {
		return 0, fmt.Errorf("unmarshal scopes: %w", err)
	}
	s, err := translation.ParseScopes(names...)
	if err != nil {
		return 0, fmt.Errorf("unmarshal scopes: %w", err)
	}
	return s, nil
}

func unmarshalDialects(data string) (dialect.Combo, error) {
	d, err := dialect.ParseList(data)
	if err != nil {
		return dialect.Empty, fmt.Errorf("unmarshal dialects: %w", err)
	}
	return d, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
