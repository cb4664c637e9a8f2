// Package core defines sentinel errors.
package core

import "errors"

// Sentinel errors. Callers wrap them with context and match with errors.Is.
var (
	// Frame decoding errors
	ErrMalformedFrame       = errors.New("router: malformed frame")
	ErrUnsupportedEtherType = errors.New("router: unsupported ethertype")
	ErrNotIPv4              = errors.New("router: not an ipv4 address")

	// Interface and transport errors
	ErrInterfaceNotFound = errors.New("router: interface not found")
	ErrNoHardwareAddr    = errors.New("router: interface has no ethernet hardware address")
	ErrTransportClosed   = errors.New("router: transport closed")

	// Configuration errors
	ErrConfigInvalid = errors.New("router: invalid configuration")
)
