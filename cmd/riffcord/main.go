package main

import "github.com/tessro/riffcord/internal/cli"

func main() {
	cli.Execute()
}
