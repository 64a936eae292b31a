package cli

import (
	"fmt"
	"fyrewiki/internal/auth"
	"fyrewiki/internal/data"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	userEmail     string
	userPassword  string
	userFirstName string
	userLastName  string
	userRole      string
)

func init() {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage wiki accounts",
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Create an account",
		Run:   runUserAdd,
	}
	addCmd.Flags().StringVar(&userEmail, "email", "", "Email address (required)")
	addCmd.Flags().StringVar(&userPassword, "password", "", "Password (required)")
	addCmd.Flags().StringVar(&userFirstName, "first", "", "First name")
	addCmd.Flags().StringVar(&userLastName, "last", "", "Last name")
	addCmd.Flags().StringVar(&userRole, "role", string(data.RoleViewer), "Role: viewer, editor or admin")
	addCmd.MarkFlagRequired("email")
	addCmd.MarkFlagRequired("password")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Run:   runUserList,
	}

	userCmd.AddCommand(addCmd, listCmd)
	RootCmd.AddCommand(userCmd)
}

func runUserAdd(cmd *cobra.Command, args []string) {
	role := data.ParseRole(userRole)
	if !strings.EqualFold(string(role), strings.TrimSpace(userRole)) {
		exitErr("user add", fmt.Errorf("unknown role %q", userRole))
	}

	cfg, err := loadConfig()
	if err != nil {
		exitErr("config", err)
	}
	db, err := openDB(cfg)
	if err != nil {
		exitErr("open database", err)
	}
	defer db.Close()

	hash, err := auth.HashPassword(userPassword)
	if err != nil {
		exitErr("hash password", err)
	}
	u := &data.User{
		Email:        userEmail,
		PasswordHash: hash,
		FirstName:    userFirstName,
		LastName:     userLastName,
		Role:         role,
	}
	if err := data.NewSQLUserRepository(db).CreateUser(cmd.Context(), u); err != nil {
		exitErr("user add", err)
	}
	fmt.Printf("created %s (%s)\n", u.Email, u.Role)
}

func runUserList(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("config", err)
	}
	db, err := openDB(cfg)
	if err != nil {
		exitErr("open database", err)
	}
	defer db.Close()

	users, err := data.NewSQLUserRepository(db).ListUsers(cmd.Context())
	if err != nil {
		exitErr("user list", err)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EMAIL\tNAME\tROLE")
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s %s\t%s\n", u.Email, u.FirstName, u.LastName, u.Role)
	}
	tw.Flush()
}
