package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		// A stopped run has already printed its summary line.
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "rarpack: %v\n", err)
		}
		os.Exit(1)
	}
}
