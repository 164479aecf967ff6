package main

import (
	"os"

	"github.com/solatis/geokeeper/cmd/geokeeper/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
