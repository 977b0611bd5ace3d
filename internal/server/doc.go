// Package server implements the WebSocket booking coordination service.
//
// The implementation is organized into specialized files: the hub (session
// registry and broadcast), per-connection clients, the message protocol
// codec, the confirmation scheduler, configuration, and the HTTP surface.
package server
