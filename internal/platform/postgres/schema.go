package postgres

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id          BIGSERIAL PRIMARY KEY,
		username    TEXT NOT NULL UNIQUE,
		secret_hash TEXT NOT NULL,
		role        TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS patients (
		id             BIGSERIAL PRIMARY KEY,
		name           TEXT NOT NULL,
		contact        TEXT NOT NULL,
		diagnosis      TEXT NOT NULL,
		masked_name    TEXT NOT NULL,
		masked_contact TEXT NOT NULL,
		date_added     DATE NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS patients_diagnosis_idx ON patients (diagnosis)`,
	// no foreign key on actor_user_id: entries outlive the users they name
	`CREATE TABLE IF NOT EXISTS audit_entries (
		id            BIGSERIAL PRIMARY KEY,
		actor_user_id BIGINT NOT NULL,
		actor_role    TEXT NOT NULL,
		action        TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL,
		details       TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS audit_entries_role_idx ON audit_entries (actor_role)`,
	`CREATE TABLE IF NOT EXISTS token_revocations (
		jti        TEXT PRIMARY KEY,
		expires_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS token_revocations_expires_idx ON token_revocations (expires_at)`,
}
