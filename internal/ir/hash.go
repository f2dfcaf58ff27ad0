package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainModel = "seqscore/model/v1"
	DomainShape = "seqscore/shape/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ShapeFingerprint identifies the API shape a sequence exercises: its set of
// library calls and the set of branch keys. Literal argument values and
// occurrence counts do not contribute, so two sequences that differ only in
// constants share a fingerprint.
func ShapeFingerprint(libraryCalls, branchKeys []string) (string, error) {
	calls := slices.Clone(libraryCalls)
	keys := slices.Clone(branchKeys)
	slices.Sort(calls)
	slices.Sort(keys)
	calls = slices.Compact(calls)
	keys = slices.Compact(keys)

	canonical, err := MarshalCanonical(map[string]any{
		"library_calls": calls,
		"branches":      keys,
	})
	if err != nil {
		return "", fmt.Errorf("ShapeFingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainShape, canonical), nil
}

// ModelHash computes the content hash of an interface model.
// Hash itself is excluded from the input.
func ModelHash(m *InterfaceModel) (string, error) {
	handles := make(map[string]any, len(m.HandleTypes))
	for name, ht := range m.HandleTypes {
		handles[name] = map[string]any{
			"release":       ht.Release,
			"alias_release": ht.AliasRelease,
		}
	}

	functions := make(map[string]any, len(m.Functions))
	for name, fn := range m.Functions {
		params := make([]any, len(fn.Params))
		for i, p := range fn.Params {
			params[i] = map[string]any{
				"name": p.Name,
				"role": string(p.Role),
				"type": p.Type,
				"into": p.Into,
			}
		}
		functions[name] = map[string]any{
			"params":   params,
			"critical": fn.Critical,
			"returns": map[string]any{
				"kind": string(fn.Returns.Kind),
				"type": fn.Returns.Type,
				"of":   fn.Returns.Of,
			},
		}
	}

	prefixes := m.Prefixes
	if prefixes == nil {
		prefixes = []string{}
	}

	canonical, err := MarshalCanonical(map[string]any{
		"library":   m.Library,
		"prefixes":  prefixes,
		"handles":   handles,
		"functions": functions,
	})
	if err != nil {
		return "", fmt.Errorf("ModelHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainModel, canonical), nil
}
