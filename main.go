package main

import "github.com/fmuoria/gems-hub/internal/cli"

func main() {
	cli.Execute()
}
