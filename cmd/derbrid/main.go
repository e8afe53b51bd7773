package main

import "github.com/derbrid/go-authflow/cmd/derbrid/cmd"

func main() {
	cmd.Execute()
}
