package main

import "github.com/pfrederiksen/voebb-loans/internal/cli"

func main() {
	cli.Execute()
}
