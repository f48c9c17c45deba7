package main

import "github.com/agentic-research/seedgraph/cmd"

func main() {
	cmd.Execute()
}
