package main

import "github.com/oshokin/parka-boundary/cmd/parka-boundary/cmd"

func main() {
	cmd.Execute()
}
