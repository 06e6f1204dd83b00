package main

import (
	"os"

	"github.com/grovetools/pyfinder/cli"
	"github.com/grovetools/pyfinder/cmd"
)

func main() {
	cli.InitColor()
	rootCmd := cmd.NewRootCmd()

	if err := rootCmd.Execute(); err != nil {
		verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")
		_ = cli.NewErrorHandler(os.Stderr, verbose).Handle(err)
		os.Exit(1)
	}
}
