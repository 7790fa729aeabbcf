package main

import (
	"github.com/alugowski/archive-workdir/cmd"
	"github.com/alugowski/archive-workdir/cmd/util"
)

func main() {
	defer util.HandlePanic()
	cmd.Execute()
}
