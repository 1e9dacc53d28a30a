package json

import jsoniter "github.com/json-iterator/go"

var (
	// JSON is the jsoniter instance used for websocket frames and bus messages
	JSON = jsoniter.ConfigCompatibleWithStandardLibrary

	Marshal   = JSON.Marshal
	Unmarshal = JSON.Unmarshal
)

// RawMessage is a raw encoded JSON value, kept compatible with encoding/json
type RawMessage = jsoniter.RawMessage
