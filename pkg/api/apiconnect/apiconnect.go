// Package apiconnect wires the splittrack.v1 services to Connect handlers and
// clients. It follows the layout protoc-gen-connect-go produces: procedure
// constants, a handler interface and constructor per service, and a client.
package apiconnect

import (
	"connectrpc.com/connect"

	"github.com/mmynk/splittrack/pkg/api"
)

// handlerOptions and clientOptions put the plain-struct JSON codec first so
// callers can still override it.
func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(api.JSONCodec{})}, opts...)
}

func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(api.JSONCodec{})}, opts...)
}
