package main

import "inboxsweep/internal/cli"

func main() {
	cli.Execute()
}
