package main

import "github.com/mcoot/sketchrelay/internal/cli"

func main() {
	cli.Execute()
}
