package main

import (
	"os"

	opsctlcmd "github.com/fieldops/console/pkg/opsctl/cmd"
)

func main() {
	root := opsctlcmd.NewRootCommand(os.Stdout)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
