package main

import "github.com/cameronsjo/manman/internal/cmd"

func main() {
	cmd.Execute()
}
