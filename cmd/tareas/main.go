package main

import (
	"os"

	"github.com/estivenmendezr98/TAREAS/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
