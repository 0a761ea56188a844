// Package main is the entry point for the enerframe application
package main

import (
	"github.com/enerframe/enerframe/cmd"
)

func main() {
	cmd.Execute()
}
