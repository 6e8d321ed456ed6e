package main

import (
	"os"

	"github.com/filipefalcaos/falcon/pkg/cli"
)

func main() {
	os.Exit(cli.Entry())
}
