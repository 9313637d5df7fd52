package main

import "cabinetquote/internal/cli"

func main() {
	cli.Execute()
}
