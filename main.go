package main

import "github.com/forge-cli/forge/cmd"

func main() {
	cmd.Execute()
}
