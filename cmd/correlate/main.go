package main

import (
	"os"

	"github.com/okian/correlate/cmd/correlate/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Stderr.WriteString("correlate: " + err.Error() + "\n")
		os.Exit(1)
	}
}
