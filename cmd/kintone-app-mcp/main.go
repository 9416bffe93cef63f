package main

import (
	"os"

	"github.com/oogFranz/kintone-app-mcp/cmd/kintone-app-mcp/commands"
)

// Version is the current version of kintone-app-mcp.
const Version = "v1.0.0"

func main() {
	commands.SetVersion(Version)

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
