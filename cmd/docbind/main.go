package main

import "github.com/jacentio/docbind/cmd/docbind/cmd"

func main() {
	cmd.Execute()
}
