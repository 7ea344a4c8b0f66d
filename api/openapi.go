// Package api holds the OpenAPI description of the board HTTP API.
package api

import _ "embed"

// Spec is the OpenAPI 3 document served and enforced by the server
//
//go:embed openapi.yaml
var Spec []byte
