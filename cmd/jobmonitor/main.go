package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"jobmonitor-engine/internal/domain"
)

func main() {
	os.Exit(execute(os.Args[1:]))
}

func execute(args []string) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	return exitCode(err)
}

// exitCode is 0 whenever scraping ran, even if every source failed.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, domain.ErrConfig), errors.Is(err, domain.ErrLedgerIO):
		return 1
	default:
		return 2
	}
}
