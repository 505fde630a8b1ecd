package main

import (
	"fmt"
	"os"

	"github.com/gridlab/quant/cmd/quant/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
