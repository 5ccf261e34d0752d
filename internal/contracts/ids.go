package contracts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// FlexID is a document identifier that may be written as a string or a number.
// Numbers keep their literal text, so 7 and "7" are the same id.
type FlexID string

// UnmarshalJSON accepts strings and numbers
func (id *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("id must not be null")
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or a number: %s", string(data))
	}
	*id = FlexID(n.String())
	return nil
}

// UnmarshalYAML accepts any scalar
func (id *FlexID) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode || node.ShortTag() == "!!null" {
		return fmt.Errorf("line %d: id must be a scalar", node.Line)
	}
	*id = FlexID(node.Value)
	return nil
}

// String returns the id text
func (id FlexID) String() string {
	return string(id)
}

// IsBlank reports an id that is empty or whitespace only
func (id FlexID) IsBlank() bool {
	return strings.TrimSpace(string(id)) == ""
}
