package docindex

import (
	"bytes"
	"encoding/json"
)

// Outcome is the documentation result of one component: a URL, or missing.
type Outcome struct {
	URL     string
	Present bool
}

// Documented returns a present outcome at url.
func Documented(url string) Outcome { return Outcome{URL: url, Present: true} }

// Missing is the outcome of a component whose documentation was not generated.
var Missing = Outcome{}

// MarshalJSON encodes a missing outcome as null and a present one as its URL.
func (o Outcome) MarshalJSON() ([]byte, error) {
	if !o.Present {
		return []byte("null"), nil
	}
	return json.Marshal(o.URL)
}

func (o *Outcome) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Missing
		return nil
	}
	var url string
	if err := json.Unmarshal(data, &url); err != nil {
		return err
	}
	*o = Documented(url)
	return nil
}

// ComponentOutcome names a component together with its outcome.
type ComponentOutcome struct {
	Name    string
	Outcome Outcome
}
