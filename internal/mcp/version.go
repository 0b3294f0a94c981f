package mcp

import "os"

// version is reported by the lite server; release builds override it with
// -ldflags "-X github.com/ldl-target-server/internal/mcp.version=..."
var version = "v1.0.0"

var stderr = os.Stderr
