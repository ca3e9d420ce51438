package migrations

import _ "embed"

//go:embed 2024112201_create_quizzes.sql
var createQuizzesSQL string

func init() {
	Migrations.MustRegister(sqlStep(createQuizzesSQL), sqlStep(`DROP TABLE IF EXISTS quizzes`))
}
