// Command catalog searches DART product catalog files from the terminal.
package main

import (
	"os"

	"github.com/JonMunkholm/dartsearch/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
