package main

import (
	"os"

	lillycmder "github.com/lillylive/lilly/cmd/lilly"
)

func main() {
	cmd := lillycmder.NewLillyCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
