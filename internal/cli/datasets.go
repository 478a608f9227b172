package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raglens/raglens/internal/corpus"
	"github.com/raglens/raglens/internal/report"
)

var listDatasetsCmd = &cobra.Command{
	Use:   "list-datasets",
	Short: "List text corpora usable as benchmark input",
	RunE: func(cmd *cobra.Command, args []string) error {
		datasets := corpus.List()
		names := make([]string, len(datasets))
		descriptions := make([]string, len(datasets))
		for i, d := range datasets {
			names[i] = d.Name
			descriptions[i] = d.Description
		}
		fmt.Println(report.DatasetTable(names, descriptions))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listDatasetsCmd)
}
