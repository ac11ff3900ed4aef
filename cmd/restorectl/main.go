package main

import (
	"errors"
	"fmt"
	"os"

	"restorable.io/restorectl/internal/checksum"
	"restorable.io/restorectl/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for a failed integrity check and 3 for any other error.
func exitCode(err error) int {
	if errors.Is(err, checksum.ErrIntegrityFailure) {
		return 2
	}
	return 3
}
