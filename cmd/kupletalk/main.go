package main

import (
	"os"

	"github.com/kuplace/kupletalk/cmd/kupletalk/cmds"
)

func main() {
	if err := cmds.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
