package apiclient

import "encoding/json"

// remarshal round-trips v (typically a map[string]any freshly decoded
// from the result envelope's Data field) into out's concrete type.
func remarshal(v any, out any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
