package main

import (
	"context"
	"os"

	"github.com/fatih/color"
	"github.com/ynput/ayon-backend-sub000/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.Execute(context.Background(), version); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}
