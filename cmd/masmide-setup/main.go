package main

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
)

func main() {
	if err := Execute(); err != nil {
		pterm.Error.Println(fmt.Sprintf("Error: %v", err))
		os.Exit(1)
	}
}
