package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database.
// These run on startup to ensure tables exist.
// Child tables cascade on project deletion so delete stays a single statement.
const schema = `
CREATE TABLE IF NOT EXISTS projects (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    create_user_id TEXT NOT NULL,
    locked INTEGER NOT NULL DEFAULT 0,
    version INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS project_members (
    project_id TEXT NOT NULL,
    name TEXT NOT NULL,
    weight INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (project_id, name),
    FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS expense_records (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    payer TEXT NOT NULL,
    amount TEXT NOT NULL,
    spend_date INTEGER NOT NULL,
    expense_type TEXT NOT NULL DEFAULT '',
    remark TEXT NOT NULL DEFAULT '',
    version INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS record_consumers (
    project_id TEXT NOT NULL,
    record_id TEXT NOT NULL,
    member TEXT NOT NULL,
    PRIMARY KEY (record_id, member),
    FOREIGN KEY (record_id) REFERENCES expense_records(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_project_members_project_id ON project_members(project_id);
CREATE INDEX IF NOT EXISTS idx_expense_records_project_id ON expense_records(project_id);
CREATE INDEX IF NOT EXISTS idx_record_consumers_project_id ON record_consumers(project_id);
CREATE INDEX IF NOT EXISTS idx_projects_create_user_id ON projects(create_user_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
