package main

import "stackforge/internal/cli"

func main() {
	cli.Execute()
}
