package main

import "pipkit/internal/cli"

func main() {
	cli.Execute()
}
