package migrations

import _ "embed"

//go:embed 2024120301_create_attempts.sql
var createAttemptsSQL string

func init() {
	Migrations.MustRegister(sqlStep(createAttemptsSQL), sqlStep(`DROP TABLE IF EXISTS attempts`))
}
