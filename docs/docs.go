// Package docs embeds the HTTP contract of the transfer service.
package docs

import _ "embed"

// OpenAPI is the OpenAPI 3 document for the /api/v1 routes
//
//go:embed openapi.yaml
var OpenAPI []byte
