package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/mesfabric/routecraft/internal/client"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage user accounts",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List user accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, err := apiClient()
		if err != nil {
			return err
		}
		users, err := c.ListUsers(context.Background())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tACTIVE\t2FA\tROLES")
		for _, u := range users {
			fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%t\t%s\n",
				u.ID, u.Username, u.Email, u.IsActive, u.Is2FAEnabled,
				strings.Join(u.Roles, ","))
		}
		return w.Flush()
	},
}

var createUserRoles []string

var usersCreateCmd = &cobra.Command{
	Use:   "create <username> <email>",
	Short: "Create a user account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, err := apiClient()
		if err != nil {
			return err
		}

		fmt.Print("Password: ")
		passBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}

		user, err := c.CreateUser(context.Background(), client.CreateUserRequest{
			Username: args[0],
			Email:    args[1],
			Password: string(passBytes),
			Roles:    createUserRoles,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Created user %s (id %d)\n", user.Username, user.ID)
		return nil
	},
}

var usersUnlockCmd = &cobra.Command{
	Use:   "unlock <id>",
	Short: "Clear a login lockout",
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
		if err := c.UnlockUser(context.Background(), id); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "User unlocked")
		return nil
	},
}

func setActiveCmd(use, short string, active bool, done string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
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
			isActive := active
			req := client.UpdateUserRequest{IsActive: &isActive}
			if _, err := c.UpdateUser(context.Background(), id, req); err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, done)
			return nil
		},
	}
}

var usersActivateCmd = setActiveCmd("activate <id>", "Re-enable a deactivated account", true, "User activated")

var usersDeactivateCmd = setActiveCmd("deactivate <id>", "Disable an account without deleting it", false, "User deactivated")

var usersAssignRoleCmd = &cobra.Command{
	Use:   "assign-role <id> <role>",
	Short: "Grant a role to a user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		c, _, err := apiClient()
		if err != nil {
			return err
		}
		if err := c.AssignRole(context.Background(), id, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Assigned role %s\n", args[1])
		return nil
	},
}

var usersRevokeRoleCmd = &cobra.Command{
	Use:   "revoke-role <id> <role>",
	Short: "Remove a role from a user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		c, _, err := apiClient()
		if err != nil {
			return err
		}
		if err := c.RevokeRole(context.Background(), id, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Revoked role %s\n", args[1])
		return nil
	},
}

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "Manage roles and permissions",
}

var rolesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List roles",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, err := apiClient()
		if err != nil {
			return err
		}
		roles, err := c.ListRoles(context.Background())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSYSTEM\tUSERS\tPERMISSIONS")
		for _, r := range roles {
			fmt.Fprintf(w, "%d\t%s\t%t\t%d\t%s\n",
				r.ID, r.Name, r.IsSystemRole, r.UserCount,
				strings.Join(r.Permissions, ","))
		}
		return w.Flush()
	},
}

var rolesMatrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Show the role/permission grid",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, err := apiClient()
		if err != nil {
			return err
		}
		matrix := client.NewPermissionMatrix(c)
		if err := matrix.Load(context.Background()); err != nil {
			return err
		}

		roles := matrix.Roles()
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		header := "PERMISSION"
		for _, r := range roles {
			header += "\t" + strings.ToUpper(r.Name)
		}
		fmt.Fprintln(w, header)
		for _, perm := range matrix.Permissions() {
			row := perm.Name
			for _, r := range roles {
				mark := "-"
				if matrix.IsGranted(r.ID, perm.ID) {
					mark = "x"
				}
				row += "\t" + mark
			}
			fmt.Fprintln(w, row)
		}
		return w.Flush()
	},
}

var (
	grantFlags  []string
	revokeFlags []string
)

var rolesGrantCmd = &cobra.Command{
	Use:   "apply",
	Short: "Grant and revoke role permissions in one batch",
	Long: `Applies permission changes against the server.

Examples:
  routectl roles apply --grant technologist=routes:export --revoke worker=routes:update`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(grantFlags) == 0 && len(revokeFlags) == 0 {
			return fmt.Errorf("nothing to apply, use --grant and --revoke")
		}
		c, _, err := apiClient()
		if err != nil {
			return err
		}
		matrix := client.NewPermissionMatrix(c)
		if err := matrix.Load(context.Background()); err != nil {
			return err
		}

		stage := func(specs []string, grant bool) error {
			for _, spec := range specs {
				roleName, permName, ok := strings.Cut(spec, "=")
				if !ok {
					return fmt.Errorf("invalid change %q, want role=resource:action", spec)
				}
				roleID, permID, err := lookupCell(matrix, roleName, permName)
				if err != nil {
					return err
				}
				if matrix.IsGranted(roleID, permID) != grant {
					matrix.Toggle(roleID, permID)
				}
			}
			return nil
		}
		if err := stage(grantFlags, true); err != nil {
			return err
		}
		if err := stage(revokeFlags, false); err != nil {
			return err
		}

		if matrix.PendingCount() == 0 {
			fmt.Fprintln(os.Stderr, "No changes to apply")
			return nil
		}
		if err := matrix.Save(context.Background()); err != nil {
			if saveErr, ok := err.(*client.MatrixSaveError); ok {
				for i, change := range saveErr.Failed {
					fmt.Fprintf(os.Stderr, "failed: %s=%s: %v\n",
						change.RoleName, change.Permission, saveErr.Errs[i])
				}
			}
			return err
		}
		fmt.Fprintln(os.Stderr, "Permissions updated")
		return nil
	},
}

func lookupCell(matrix *client.PermissionMatrix, roleName, permName string) (uint, uint, error) {
	var roleID uint
	for _, r := range matrix.Roles() {
		if r.Name == roleName {
			roleID = r.ID
			break
		}
	}
	if roleID == 0 {
		return 0, 0, fmt.Errorf("unknown role %q", roleName)
	}
	var permID uint
	for _, p := range matrix.Permissions() {
		if p.Name == permName {
			permID = p.ID
			break
		}
	}
	if permID == 0 {
		return 0, 0, fmt.Errorf("unknown permission %q", permName)
	}
	return roleID, permID, nil
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show recent audit log entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, err := apiClient()
		if err != nil {
			return err
		}
		list, err := c.ListAuditLogs(context.Background(), 1, auditEventType, auditUsername)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "AT\tUSER\tEVENT\tOK\tDESCRIPTION")
		for _, entry := range list.AuditLogs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n",
				entry.Timestamp.Format("2006-01-02 15:04:05"),
				entry.Username, entry.EventType, entry.Success, entry.Description)
		}
		return w.Flush()
	},
}

var (
	auditEventType string
	auditUsername  string
)

func init() {
	usersCreateCmd.Flags().StringSliceVar(&createUserRoles, "role", nil, "Role to assign (repeatable)")

	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersCreateCmd)
	usersCmd.AddCommand(usersUnlockCmd)
	usersCmd.AddCommand(usersActivateCmd)
	usersCmd.AddCommand(usersDeactivateCmd)
	usersCmd.AddCommand(usersAssignRoleCmd)
	usersCmd.AddCommand(usersRevokeRoleCmd)

	rolesGrantCmd.Flags().StringSliceVar(&grantFlags, "grant", nil, "role=resource:action to grant (repeatable)")
	rolesGrantCmd.Flags().StringSliceVar(&revokeFlags, "revoke", nil, "role=resource:action to revoke (repeatable)")

	rolesCmd.AddCommand(rolesListCmd)
	rolesCmd.AddCommand(rolesMatrixCmd)
	rolesCmd.AddCommand(rolesGrantCmd)

	auditCmd.Flags().StringVar(&auditEventType, "event", "", "Filter by event type")
	auditCmd.Flags().StringVar(&auditUsername, "user", "", "Filter by username")
}
