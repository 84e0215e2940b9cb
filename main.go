package main

import (
	"errors"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// The report has already been printed; only the exit status is left.
		if errors.Is(err, errTransferFailures) {
			os.Exit(1)
		}

		exitOnError(err)
	}
}
