package main

import (
	"github.com/niels/repo-status/internal/cmd"
)

func main() {
	cmd.Execute()
}
