package main

import "regbot/internal/cli"

func main() {
	cli.Execute()
}
