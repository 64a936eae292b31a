package auth

import (
	"fmt"
	"fyrewiki/internal/data"
	"fyrewiki/internal/logger"

	"github.com/casbin/casbin/v2"
)

// DefaultPolicies is the baseline route table. Each role inherits the one
// before it: anonymous < viewer < editor < admin.
var DefaultPolicies = [][]string{
	{Anonymous, "/sign-in", "GET"},
	{Anonymous, "/sign-in", "POST"},
	{Anonymous, "/code", "GET"},
	{Anonymous, "/code", "POST"},
	{Anonymous, "/auth/login", "GET"},
	{Anonymous, "/auth/callback", "GET"},
	{Anonymous, "/robots.txt", "GET"},
	{Anonymous, "/sitemap.xml", "GET"},

	{string(data.RoleViewer), "/", "GET"},
	{string(data.RoleViewer), "/page", "GET"},
	{string(data.RoleViewer), "/category", "GET"},
	{string(data.RoleViewer), "/sign-out", "GET"},

	{string(data.RoleEditor), "/editor", "GET"},
	{string(data.RoleEditor), "/active-editor", "POST"},
	{string(data.RoleEditor), "/save-file", "POST"},
	{string(data.RoleEditor), "/return-to-page", "POST"},
	{string(data.RoleEditor), "/update-page-name", "POST"},
	{string(data.RoleEditor), "/update-page-category", "POST"},
	{string(data.RoleEditor), "/create-page", "GET"},
	{string(data.RoleEditor), "/create-page", "POST"},
	{string(data.RoleEditor), "/download-db", "GET"},

	{string(data.RoleAdmin), "/delete-page", "GET"},
	{string(data.RoleAdmin), "/delete-page", "POST"},
	{string(data.RoleAdmin), "/backup-db", "GET"},
}

var roleInheritance = [][2]string{
	{string(data.RoleViewer), Anonymous},
	{string(data.RoleEditor), string(data.RoleViewer)},
	{string(data.RoleAdmin), string(data.RoleEditor)},
}

// SeedDefaultPolicies ensures that the application has a baseline set of authorization rules.
// Policies that already exist are left alone, so it is safe to run on every start.
func SeedDefaultPolicies(e casbin.IEnforcer, log logger.Logger) {
	log.Info("Seeding default authorization policies...")

	for _, p := range DefaultPolicies {
		if has, _ := e.HasPolicy(p); !has {
			if _, err := e.AddPolicy(p); err != nil {
				log.Error(err, fmt.Sprintf("Failed to add policy %v", p))
			}
		}
	}

	for _, r := range roleInheritance {
		if has, _ := e.HasRoleForUser(r[0], r[1]); !has {
			if _, err := e.AddRoleForUser(r[0], r[1]); err != nil {
				log.Error(err, fmt.Sprintf("Failed to add role '%s' -> '%s'", r[0], r[1]))
			}
		}
	}
	log.Info("Policy seeding complete.")
}
