package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"text/tabwriter"

	"github.com/mesfabric/routecraft/internal/client"
	"github.com/spf13/cobra"
)

var operationsCmd = &cobra.Command{
	Use:   "operations",
	Short: "Browse the operation catalog",
}

var operationsListType string

var operationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, err := apiClient()
		if err != nil {
			return err
		}

		path := "/operations"
		if operationsListType != "" {
			path += "?status=" + url.QueryEscape(operationsListType)
		}
		var resp struct {
			Operations []client.Operation `json:"operations"`
		}
		if _, err := c.Get(context.Background(), path, &resp); err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCODE\tNAME\tTYPE\tSETUP\tTIME")
		for _, op := range resp.Operations {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.0fm\t%.0fm\n",
				op.ID, op.OperationCode, op.Name, op.OperationType, op.SetupTime, op.OperationTime)
		}
		return w.Flush()
	},
}

func init() {
	operationsListCmd.Flags().StringVar(&operationsListType, "type", "", "Filter by operation type")
	operationsCmd.AddCommand(operationsListCmd)
}
