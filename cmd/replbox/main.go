package main

import "github.com/bhandras/replbox/internal/cli"

var (
	version = "dev"
	commit  = "none"
)

func main() {
	cli.SetVersion(version, commit)
	cli.Execute()
}
