// Package main is the entry point for the sourcerer CLI.
package main

import "sourcerer.dev/pkg/sourcerer/cmd"

func main() {
	cmd.Execute()
}
