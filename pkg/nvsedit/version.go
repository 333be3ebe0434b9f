// Package nvsedit holds build metadata for the nvsedit module.
package nvsedit

// Version is the nvsedit release version.
const Version = "0.3.0"

// ModulePath is the Go module path.
const ModulePath = "github.com/mesh-intelligence/nvsedit"
