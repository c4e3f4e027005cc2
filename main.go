package main

import (
	"os"

	"github.com/richardjcool/MMTQueue/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
