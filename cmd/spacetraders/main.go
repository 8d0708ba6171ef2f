package main

import "github.com/andrescamacho/spacetraders-autopilot/internal/adapters/cli"

func main() {
	cli.Execute()
}
