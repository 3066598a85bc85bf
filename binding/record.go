package binding

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Record is a host object: string keys, dynamically typed values.
type Record map[string]any

// String renders the record as JSON with sorted keys.
func (r Record) String() string {
	data, err := json.Marshal(map[string]any(r))
	if err != nil {
		return fmt.Sprintf("%v", map[string]any(r))
	}
	return string(data)
}

// messageRecord converts a native message to the shape host callbacks see.
func messageRecord(value string, id int32) Record {
	return Record{"value": value, "id": id}
}
