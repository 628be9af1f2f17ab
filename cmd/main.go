package main

import "os"

// Version will be set at build time
var Version = "development"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
