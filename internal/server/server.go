// Package server provides HTTP server creation and route registration.
package server

import "github.com/google/wire"

// ProviderSet is server providers.
var ProviderSet = wire.NewSet(NewHTTPServer)
