package main

import "github.com/mvp-joe/symmap/internal/cli"

func main() {
	cli.Execute()
}
