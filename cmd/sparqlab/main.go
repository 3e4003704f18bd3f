package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"
)

var version = "0.1.0"

func main() {
	rootCmd := newRootCmd(afero.NewOsFs())
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
