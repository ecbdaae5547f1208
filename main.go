package main

import (
	"os"

	"github.com/cv-app-yz/cv-app/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
