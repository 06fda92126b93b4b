package main

import (
	"context"
	"fmt"
	"os"

	"github.com/GoCodeAlone/kernel/cmd/kerneldemo/cmd"
)

func main() {
	rootCmd := cmd.NewRootCommand()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
