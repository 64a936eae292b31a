package auth

import (
	"fyrewiki/internal/config"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/util"
	sqlxadapter "github.com/memwey/casbin-sqlx-adapter"
)

// Anonymous is the casbin subject for requests without a signed-in user.
const Anonymous = "anonymous"

// modelText is an RBAC model over request paths and HTTP methods.
const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && r.act == p.act
`

// NewModel parses the built-in authorization model.
func NewModel() (model.Model, error) {
	return model.NewModelFromString(modelText)
}

// NewEnforcer creates a Casbin enforcer whose policies live in the
// casbin_rule table of the wiki database, and loads them.
func NewEnforcer(cfg config.DBConfig) (*casbin.Enforcer, error) {
	m, err := NewModel()
	if err != nil {
		return nil, err
	}

	opts := &sqlxadapter.AdapterOptions{
		DriverName:     cfg.Driver,
		DataSourceName: cfg.DSN,
		TableName:      "casbin_rule",
	}
	adapter := sqlxadapter.NewAdapterFromOptions(opts)

	enforcer, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)

	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

// NewMemoryEnforcer creates an enforcer with no persistent storage.
func NewMemoryEnforcer() (*casbin.Enforcer, error) {
	m, err := NewModel()
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}
	enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)
	return enforcer, nil
}
