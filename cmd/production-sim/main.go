package main

import "github.com/andrescamacho/rts-production/internal/adapters/cli"

func main() {
	cli.Execute()
}
