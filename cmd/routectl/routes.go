package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/mesfabric/routecraft/internal/client"
	"github.com/spf13/cobra"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Manage technological routes",
}

var (
	routesListStatus string
	routesListSearch string
	routesListPage   int
)

var routesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, err := apiClient()
		if err != nil {
			return err
		}
		opts := client.RouteListOptions{
			Page:   routesListPage,
			Status: routesListStatus,
			Search: routesListSearch,
		}
		list, err := c.ListRoutes(context.Background(), opts)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCODE\tNAME\tSTATUS\tVERSION\tOPS\tUPDATED")
		for _, r := range list.Routes {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\tv%d\t%d\t%s\n",
				r.ID, r.RouteCode, r.Name, r.Status, r.VersionNumber,
				r.TotalOperations, r.UpdatedAt.Format("2006-01-02 15:04"))
		}
		if err := w.Flush(); err != nil {
			return err
		}
		if list.Pagination.TotalPages > 1 {
			fmt.Fprintf(os.Stderr, "Page %d of %d (%d routes)\n",
				list.Pagination.Page, list.Pagination.TotalPages, list.Pagination.Total)
		}
		return nil
	},
}

var routesGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one route as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		c, _, err := apiClient()
		if err != nil {
			return err
		}
		route, err := c.GetRoute(context.Background(), id)
		if err != nil {
			return err
		}
		return printJSON(route)
	},
}

var routesVersionsCmd = &cobra.Command{
	Use:   "versions <id>",
	Short: "Show the version history of a route",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		c, _, err := apiClient()
		if err != nil {
			return err
		}
		versions, err := c.ListRouteVersions(context.Background(), id)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tTYPE\tBY\tAT\tSUMMARY")
		for _, v := range versions {
			fmt.Fprintf(w, "v%d\t%s\t%s\t%s\t%s\n",
				v.VersionNumber, v.ChangeType, v.CreatedBy,
				v.CreatedAt.Format("2006-01-02 15:04"), v.ChangeSummary)
		}
		return w.Flush()
	},
}

var routesDiffCmd = &cobra.Command{
	Use:   "diff <id> <from> <to>",
	Short: "Show what changed between two versions of a route",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		from, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version number %q", args[1])
		}
		to, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid version number %q", args[2])
		}
		c, _, err := apiClient()
		if err != nil {
			return err
		}
		diff, err := c.DiffRouteVersions(context.Background(), id, from, to)
		if err != nil {
			return err
		}
		if len(diff.Changes) == 0 {
			fmt.Printf("No changes between v%d and v%d\n", diff.From, diff.To)
			return nil
		}
		fmt.Printf("Changes from v%d to v%d:\n", diff.From, diff.To)
		for _, change := range diff.Changes {
			fmt.Printf("  - %s\n", change)
		}
		return nil
	},
}

var routesRestoreCmd = &cobra.Command{
	Use:   "restore <id> <version>",
	Short: "Roll a route back to an earlier version",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		versionNumber, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version number %q", args[1])
		}
		c, _, err := apiClient()
		if err != nil {
			return err
		}
		route, err := c.RestoreRouteVersion(context.Background(), id, versionNumber)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Restored %s to v%d (now v%d)\n",
			route.RouteCode, versionNumber, route.VersionNumber)
		return nil
	},
}

var snapshotDescription string

var routesSnapshotCmd = &cobra.Command{
	Use:   "snapshot <id>",
	Short: "Record the current route state as a new version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		c, _, err := apiClient()
		if err != nil {
			return err
		}
		version, err := c.CreateRouteVersion(context.Background(), id, snapshotDescription)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Created version %d\n", version.VersionNumber)
		return nil
	},
}

var routesPublishCmd = &cobra.Command{
	Use:   "publish <id>",
	Short: "Activate a route",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		c, _, err := apiClient()
		if err != nil {
			return err
		}
		route, err := c.PublishRoute(context.Background(), id)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Published %s (v%d, %s)\n",
			route.RouteCode, route.VersionNumber, route.Status)
		return nil
	},
}

var (
	duplicateName string
	duplicateCode string
)

var routesDuplicateCmd = &cobra.Command{
	Use:   "duplicate <id>",
	Short: "Copy a route into a new draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		c, _, err := apiClient()
		if err != nil {
			return err
		}
		route, err := c.DuplicateRoute(context.Background(), id, duplicateName, duplicateCode)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Created %s (id %d)\n", route.RouteCode, route.ID)
		return nil
	},
}

var routesValidateCmd = &cobra.Command{
	Use:   "validate <id>",
	Short: "Validate the route graph",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		c, _, err := apiClient()
		if err != nil {
			return err
		}
		result, err := c.ValidateRoute(context.Background(), id)
		if err != nil {
			return err
		}
		for _, e := range result.Errors {
			fmt.Printf("error: %s\n", e)
		}
		for _, warn := range result.Warnings {
			fmt.Printf("warning: %s\n", warn)
		}
		if result.Valid {
			fmt.Println("Route is valid")
			return nil
		}
		return fmt.Errorf("route has validation errors")
	},
}

var (
	exportFormat  string
	exportOutput  string
	exportVersion int
)

var routesExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Download a route sheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		c, _, err := apiClient()
		if err != nil {
			return err
		}
		var data []byte
		if exportVersion > 0 {
			data, _, err = c.ExportRouteVersion(context.Background(), id, exportVersion, exportFormat)
		} else {
			data, _, err = c.ExportRoute(context.Background(), id, exportFormat)
		}
		if err != nil {
			return err
		}

		if exportOutput == "" || exportOutput == "-" {
			_, err := os.Stdout.Write(data)
			return err
		}
		if err := os.WriteFile(exportOutput, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote %s (%d bytes)\n", exportOutput, len(data))
		return nil
	},
}

var routesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Archive and delete a route",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		c, _, err := apiClient()
		if err != nil {
			return err
		}
		if err := c.DeleteRoute(context.Background(), id); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Route deleted")
		return nil
	},
}

func init() {
	routesListCmd.Flags().StringVar(&routesListStatus, "status", "", "Filter by status (draft, active, archived)")
	routesListCmd.Flags().StringVar(&routesListSearch, "search", "", "Search in name, code and description")
	routesListCmd.Flags().IntVar(&routesListPage, "page", 1, "Page number")

	routesSnapshotCmd.Flags().StringVar(&snapshotDescription, "description", "", "Description for the snapshot")

	routesDuplicateCmd.Flags().StringVar(&duplicateName, "name", "", "Name for the copy")
	routesDuplicateCmd.Flags().StringVar(&duplicateCode, "code", "", "Route code for the copy")

	routesExportCmd.Flags().StringVar(&exportFormat, "format", "json", "Export format: json, pdf or excel")
	routesExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default stdout)")
	routesExportCmd.Flags().IntVar(&exportVersion, "version", 0, "Export a historical version instead of the current state")

	routesCmd.AddCommand(routesListCmd)
	routesCmd.AddCommand(routesGetCmd)
	routesCmd.AddCommand(routesVersionsCmd)
	routesCmd.AddCommand(routesDiffCmd)
	routesCmd.AddCommand(routesSnapshotCmd)
	routesCmd.AddCommand(routesRestoreCmd)
	routesCmd.AddCommand(routesPublishCmd)
	routesCmd.AddCommand(routesDuplicateCmd)
	routesCmd.AddCommand(routesValidateCmd)
	routesCmd.AddCommand(routesExportCmd)
	routesCmd.AddCommand(routesDeleteCmd)
}
