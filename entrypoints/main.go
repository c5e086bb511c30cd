package main

import (
	"github.com/vihaankava/nonprofit/cmd"
)

func main() {
	cmd.Execute()
}
