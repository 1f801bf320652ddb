package main

import (
	"encoding/json"
	"fmt"
	"os"
)

// printResult renders v as pretty JSON when jsonOutput is set, otherwise
// delegates to humanFn for a command-specific summary.
func printResult(v interface{}, humanFn func()) {
	if jsonOutput {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
		return
	}
	humanFn()
}
