package main

import "github.com/colinhebe/htmlserve/internal/cli"

func main() {
	cli.Execute()
}
