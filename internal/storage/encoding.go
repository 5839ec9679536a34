package storage

import (
	"encoding/json"
	"fmt"

	"github.com/mvp-joe/symmap/internal/symbols"
)

// EncodeMap serializes a FileMap to JSON. DecodeMap(EncodeMap(m)) is equal
// to m for every map the pipeline produces.
func EncodeMap(m *symbols.FileMap) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("nil map")
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode map for %s: %w", m.FileID, err)
	}
	return data, nil
}

// DecodeMap parses a FileMap encoded by EncodeMap and checks its tree.
//
// Returns an error wrapping symbols.ErrMalformedMap if a non-degraded map
// breaks containment, which indicates corrupted data. Degraded maps are
// flat and skip the check.
func DecodeMap(data []byte) (*symbols.FileMap, error) {
	var m symbols.FileMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode map: %w", err)
	}
	if m.Roots == nil {
		m.Roots = []symbols.ID{}
	}
	if m.Symbols == nil {
		m.Symbols = map[symbols.ID]*symbols.Symbol{}
	}
	for _, s := range m.Symbols {
		s.Compact()
	}
	if m.Degraded {
		return &m, nil
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("stored map for %s: %w", m.FileID, err)
	}
	return &m, nil
}
