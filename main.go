package main

import "github.com/agentic-research/gitlore/cmd"

func main() {
	cmd.Execute()
}
