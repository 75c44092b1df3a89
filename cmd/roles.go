package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spigell/career-twin/internal/interview"
)

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "List the supported target roles",
	Run: func(_ *cobra.Command, _ []string) {
		for _, role := range interview.Roles {
			fmt.Println(role)
		}
	},
}

func init() {
	rootCmd.AddCommand(rolesCmd)
}
