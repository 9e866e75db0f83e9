package main

import (
	"os"

	"github.com/osmtools/survey2osm/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
