package main

import "github.com/strrl/split-specs-dashboard/cmd/split-specs/commands"

func main() {
	commands.Execute()
}
