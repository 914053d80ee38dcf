package main

import "ragseed/internal/cli"

func main() {
	cli.Execute()
}
