package main

import "github.com/applyflow/applyflow/internal/cli"

func main() {
	cli.Execute()
}
