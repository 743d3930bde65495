package main

import "hackterm/internal/cmd"

func main() {
	cmd.Execute()
}
