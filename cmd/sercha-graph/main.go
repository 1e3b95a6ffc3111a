package main

import (
	"os"

	"github.com/custodia-labs/sercha-graph/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-graph/internal/app"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.Configure(app.New("").Deps())
	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}
