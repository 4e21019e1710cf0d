package main

import "ms-events/cmd/eventctl/cmd"

func main() {
	cmd.Execute()
}
