package main

import (
	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{Use: "pokedex"}

	root.AddCommand(serveCMD(), migrateCMD(), mcpCMD(), infoCMD())
	_ = root.Execute()
}
