package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillcomposer/pkg/presenter"
	"github.com/jingkaihe/skillcomposer/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		info := version.Get()
		if asJSON, _ := cmd.Flags().GetBool("json"); !asJSON {
			fmt.Println(info.String())
			return
		}
		out, err := info.JSON()
		if err != nil {
			presenter.Error(err, "Failed to render version")
			return
		}
		fmt.Println(out)
	},
}

func init() {
	versionCmd.Flags().Bool("json", false, "Print the build information as JSON")
}
