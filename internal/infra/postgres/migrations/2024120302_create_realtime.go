package migrations

import _ "embed"

//go:embed 2024120302_create_realtime.sql
var createRealtimeSQL string

func init() {
	Migrations.MustRegister(
		sqlStep(createRealtimeSQL),
		sqlStep(`DROP TABLE IF EXISTS poll_votes; DROP TABLE IF EXISTS polls; DROP TABLE IF EXISTS discussion_messages`),
	)
}
