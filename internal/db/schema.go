// Package db provides the compiled-in schema migration set.
package db

// schemaMigrations is the ordered schema history. Never edit an entry
// after release; append a new version instead (checksums are verified
// on every startup).
var schemaMigrations = []migration{
	{
		version:     1,
		description: "initial schema",
		statements: `
		CREATE TABLE exercises (
			id TEXT PRIMARY KEY,
			user_id TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			synced_at INTEGER,
			deleted INTEGER NOT NULL DEFAULT 0,
			deleted_at INTEGER,
			name TEXT NOT NULL,
			muscle_group TEXT NOT NULL DEFAULT '',
			equipment TEXT NOT NULL DEFAULT '',
			is_custom INTEGER NOT NULL DEFAULT 0
		);
		CREATE UNIQUE INDEX ux_exercises_user_name
			ON exercises (COALESCE(user_id, ''), lower(name)) WHERE deleted = 0;

		CREATE TABLE workout_templates (
			id TEXT PRIMARY KEY,
			user_id TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			synced_at INTEGER,
			deleted INTEGER NOT NULL DEFAULT 0,
			deleted_at INTEGER,
			name TEXT NOT NULL,
			is_preset INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE template_exercises (
			id TEXT PRIMARY KEY,
			template_id TEXT NOT NULL REFERENCES workout_templates(id) ON DELETE CASCADE,
			exercise_id TEXT NOT NULL,
			position INTEGER NOT NULL DEFAULT 0,
			note TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX idx_template_exercises_template ON template_exercises(template_id, position);

		CREATE TABLE workout_sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			synced_at INTEGER,
			deleted INTEGER NOT NULL DEFAULT 0,
			deleted_at INTEGER,
			template_id TEXT,
			template_name TEXT NOT NULL DEFAULT '',
			started_at INTEGER NOT NULL,
			completed_at INTEGER,
			duration_seconds INTEGER NOT NULL DEFAULT 0,
			total_volume REAL NOT NULL DEFAULT 0
		);
		CREATE INDEX idx_workout_sessions_started ON workout_sessions(started_at DESC);

		CREATE TABLE exercise_logs (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES workout_sessions(id) ON DELETE CASCADE,
			exercise_id TEXT NOT NULL,
			exercise_name TEXT NOT NULL DEFAULT '',
			position INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX idx_exercise_logs_session ON exercise_logs(session_id, position);

		CREATE TABLE sets (
			id TEXT PRIMARY KEY,
			log_id TEXT NOT NULL REFERENCES exercise_logs(id) ON DELETE CASCADE,
			set_number INTEGER NOT NULL DEFAULT 1,
			weight REAL NOT NULL DEFAULT 0,
			reps INTEGER NOT NULL DEFAULT 0,
			rpe REAL,
			is_pr INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX idx_sets_log ON sets(log_id, set_number);

		CREATE TABLE personal_records (
			id TEXT PRIMARY KEY,
			user_id TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			synced_at INTEGER,
			deleted INTEGER NOT NULL DEFAULT 0,
			deleted_at INTEGER,
			exercise_id TEXT NOT NULL,
			exercise_name TEXT NOT NULL DEFAULT '',
			weight REAL NOT NULL DEFAULT 0,
			reps INTEGER NOT NULL DEFAULT 0,
			achieved_at INTEGER NOT NULL DEFAULT 0,
			session_id TEXT
		);
		CREATE INDEX idx_personal_records_exercise ON personal_records(exercise_id);

		CREATE TABLE body_measurements (
			id TEXT PRIMARY KEY,
			user_id TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			synced_at INTEGER,
			deleted INTEGER NOT NULL DEFAULT 0,
			deleted_at INTEGER,
			weight REAL,
			chest REAL,
			waist REAL,
			hips REAL,
			arms REAL,
			thighs REAL,
			measured_at INTEGER NOT NULL DEFAULT 0,
			notes TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX idx_body_measurements_measured ON body_measurements(measured_at DESC);

		CREATE TABLE conflict_log (
			id TEXT PRIMARY KEY,
			entity_type TEXT NOT NULL,
			record_id TEXT NOT NULL,
			local_timestamp INTEGER NOT NULL,
			remote_timestamp INTEGER NOT NULL,
			resolution TEXT NOT NULL,
			rule TEXT NOT NULL DEFAULT '',
			detected_at INTEGER NOT NULL
		);

		CREATE TABLE sync_credentials (
			id TEXT PRIMARY KEY,
			endpoint TEXT NOT NULL,
			bucket_name TEXT NOT NULL,
			region TEXT NOT NULL DEFAULT 'us-east-1',
			access_key_encrypted TEXT NOT NULL,
			secret_key_encrypted TEXT NOT NULL,
			force_path_style INTEGER NOT NULL DEFAULT 0,
			is_enabled INTEGER NOT NULL DEFAULT 1,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
		`,
	},
	{
		version:     2,
		description: "seed built-in exercise catalog and preset templates",
		statements:  seedStatements,
	},
}
