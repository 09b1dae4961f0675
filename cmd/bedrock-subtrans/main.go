package main

import (
	"os"

	"github.com/mgpai22/subtrans/internal/cli"
)

func main() {
	if err := cli.Execute(cli.BedrockPreset); err != nil {
		os.Exit(1)
	}
}
