package main

import "github.com/psakit/tfmprov/cmd/tfmprov/internal"

func main() {
	internal.Execute()
}
