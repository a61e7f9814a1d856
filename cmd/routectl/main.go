package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is set via ldflags at build time
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "routectl",
	Short: "Routectl - command line client for RouteCraft",
	Long:  `Routectl manages technological routes, users and roles on a RouteCraft server.`,
	Example: `  # Log in and list routes
  routectl login http://localhost:8470
  routectl routes list

  # Export a route sheet as PDF
  routectl routes export 12 --format pdf -o route12.pdf`,
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "routes", Title: "Route Commands:"},
		&cobra.Group{ID: "server", Title: "Server Commands:"},
		&cobra.Group{ID: "admin", Title: "Admin Commands:"},
	)

	routesCmd.GroupID = "routes"
	operationsCmd.GroupID = "routes"

	loginCmd.GroupID = "server"
	logoutCmd.GroupID = "server"
	whoamiCmd.GroupID = "server"

	usersCmd.GroupID = "admin"
	rolesCmd.GroupID = "admin"
	auditCmd.GroupID = "admin"

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(routesCmd)
	rootCmd.AddCommand(operationsCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(rolesCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
