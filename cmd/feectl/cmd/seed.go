package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"feeledger_backend/internals/seeds"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load sample classes, students and fees",
	Long: `Load classes, students, enrollments, fee definitions and fee assignments.

Without --file the bundled sample dataset is used. Existing rows are kept,
so the command can be run more than once.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, closeDB, err := openDB()
		if err != nil {
			return err
		}
		defer closeDB()

		file, _ := cmd.Flags().GetString("file")
		sum, err := seeds.RunAllSeeds(cmd.Context(), db, file)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "enrollments=%d definitions=%d assignments=%d\n",
			sum.Enrollments, sum.Definitions, sum.Assignments)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().String("file", "", "Path to a seed JSON file (default: bundled sample)")
}
