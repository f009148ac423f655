package main

import "github.com/pfrederiksen/laget-events/internal/cli"

func main() {
	cli.Execute()
}
