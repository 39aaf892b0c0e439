// Package api defines the splittrack.v1 wire messages exchanged over Connect.
//
// Messages are plain Go structs encoded as JSON; amounts travel as decimal
// strings with two places and timestamps as RFC 3339 strings.
package api

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// JSONCodec encodes messages with encoding/json. It registers under the name
// "json", replacing Connect's protojson codec for these plain structs.
type JSONCodec struct{}

var _ connect.Codec = JSONCodec{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (JSONCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}
