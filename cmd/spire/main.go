package main

import "github.com/spirehq/spire/internal/cli"

func main() {
	cli.Execute()
}
