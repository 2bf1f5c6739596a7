package main

import (
	"os"

	"github.com/dgallion1/docbridge/internal/cli"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(cli.Execute(cli.NewMd2DocxCommand(version)))
}
