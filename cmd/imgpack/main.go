package main

import "github.com/mydehq/imgpack/internal/cli"

func main() {
	cli.Execute()
}
