package main

import (
	"github.com/swarm64/fpgamon/pkg/cli"
)

func main() {
	cli.Execute()
}
