package main

import (
	"os"
)

func main() {
	rootCmd, a := newRootCmd()
	err := rootCmd.Execute()
	a.sync()
	if err != nil {
		os.Exit(1)
	}
}
