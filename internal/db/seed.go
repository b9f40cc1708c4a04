// Package db provides the built-in catalog seed.
package db

// Seed timestamps are fixed so every device starts from an identical
// catalog; built-in rows never sync (is_custom = 0, is_preset = 1).
const seedEpoch = "1735689600" // 2025-01-01T00:00:00Z

const seedStatements = `
	INSERT INTO exercises (id, created_at, updated_at, name, muscle_group, equipment, is_custom) VALUES
		('builtin-bench-press', ` + seedEpoch + `, ` + seedEpoch + `, 'Bench Press', 'chest', 'barbell', 0),
		('builtin-squat', ` + seedEpoch + `, ` + seedEpoch + `, 'Squat', 'legs', 'barbell', 0),
		('builtin-deadlift', ` + seedEpoch + `, ` + seedEpoch + `, 'Deadlift', 'back', 'barbell', 0),
		('builtin-overhead-press', ` + seedEpoch + `, ` + seedEpoch + `, 'Overhead Press', 'shoulders', 'barbell', 0),
		('builtin-barbell-row', ` + seedEpoch + `, ` + seedEpoch + `, 'Barbell Row', 'back', 'barbell', 0),
		('builtin-pull-up', ` + seedEpoch + `, ` + seedEpoch + `, 'Pull Up', 'back', 'bodyweight', 0),
		('builtin-dip', ` + seedEpoch + `, ` + seedEpoch + `, 'Dip', 'chest', 'bodyweight', 0),
		('builtin-dumbbell-curl', ` + seedEpoch + `, ` + seedEpoch + `, 'Dumbbell Curl', 'arms', 'dumbbell', 0),
		('builtin-lateral-raise', ` + seedEpoch + `, ` + seedEpoch + `, 'Lateral Raise', 'shoulders', 'dumbbell', 0),
		('builtin-leg-press', ` + seedEpoch + `, ` + seedEpoch + `, 'Leg Press', 'legs', 'machine', 0),
		('builtin-romanian-deadlift', ` + seedEpoch + `, ` + seedEpoch + `, 'Romanian Deadlift', 'legs', 'barbell', 0),
		('builtin-plank', ` + seedEpoch + `, ` + seedEpoch + `, 'Plank', 'core', 'bodyweight', 0);

	INSERT INTO workout_templates (id, created_at, updated_at, name, is_preset) VALUES
		('preset-push-day', ` + seedEpoch + `, ` + seedEpoch + `, 'Push Day', 1),
		('preset-pull-day', ` + seedEpoch + `, ` + seedEpoch + `, 'Pull Day', 1),
		('preset-leg-day', ` + seedEpoch + `, ` + seedEpoch + `, 'Leg Day', 1);

	INSERT INTO template_exercises (id, template_id, exercise_id, position) VALUES
		('preset-push-1', 'preset-push-day', 'builtin-bench-press', 0),
		('preset-push-2', 'preset-push-day', 'builtin-overhead-press', 1),
		('preset-push-3', 'preset-push-day', 'builtin-dip', 2),
		('preset-push-4', 'preset-push-day', 'builtin-lateral-raise', 3),
		('preset-pull-1', 'preset-pull-day', 'builtin-deadlift', 0),
		('preset-pull-2', 'preset-pull-day', 'builtin-barbell-row', 1),
		('preset-pull-3', 'preset-pull-day', 'builtin-pull-up', 2),
		('preset-pull-4', 'preset-pull-day', 'builtin-dumbbell-curl', 3),
		('preset-leg-1', 'preset-leg-day', 'builtin-squat', 0),
		('preset-leg-2', 'preset-leg-day', 'builtin-romanian-deadlift', 1),
		('preset-leg-3', 'preset-leg-day', 'builtin-leg-press', 2),
		('preset-leg-4', 'preset-leg-day', 'builtin-plank', 3);
`
