package migrations

import _ "embed"

//go:embed 2024120303_create_users.sql
var createUsersSQL string

func init() {
	Migrations.MustRegister(sqlStep(createUsersSQL), sqlStep(`DROP TABLE IF EXISTS users`))
}
