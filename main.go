package main

import "github.com/gokaycavdar/go-vpnsense/cmd"

func main() {
	cmd.Execute()
}
