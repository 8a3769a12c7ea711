package main

import "github.com/proc-discovery/cmd/cli/cmd"

func main() {
	cmd.Execute()
}
