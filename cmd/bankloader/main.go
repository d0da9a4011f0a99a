package main

import (
	"os"

	"go.nownabe.dev/bankloader/cmd/bankloader/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
