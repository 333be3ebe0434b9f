// Command nvsedit edits ESP-IDF NVS partitions through a persistent
// workspace.
package main

import "github.com/mesh-intelligence/nvsedit/internal/cli"

func main() {
	cli.Execute()
}
