package main

import (
	"context"
	"os"

	"github.com/haricheung/stripsbridge/internal/ui"
)

func main() {
	if err := Execute(context.Background()); err != nil {
		color := os.Getenv("NO_COLOR") == "" && isTerminal(os.Stderr)
		ui.New(os.Stderr, color, 0).Error(err)
		os.Exit(1)
	}
}
