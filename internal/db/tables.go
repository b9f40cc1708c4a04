// Package db provides the per-entity table descriptors that drive the
// generic repository. One query layer serves every entity type; only
// the row codecs below differ, so the sync predicates cannot drift
// between entities.
package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/kbradley/liftlog/internal/models"
)

// syncCols are the shared bookkeeping columns every synced table carries,
// in scan order.
var syncCols = []string{"id", "user_id", "created_at", "updated_at", "synced_at", "deleted", "deleted_at"}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	Query(query string, args ...interface{}) (*sql.Rows, error)
}

// tableSpec describes one synced entity table.
type tableSpec struct {
	table       string
	cols        []string // entity columns beyond syncCols
	syncFilter  string   // extra predicate applied to GetPending/GetTombstones
	activeOrder string   // ORDER BY clause for GetActive

	scan func(row rowScanner) (models.Record, error)
	args func(rec models.Record) []interface{}

	// Aggregate hooks; nil for flat entities.
	loadChildren   func(q queryer, rec models.Record) error
	saveChildren   func(tx *sql.Tx, rec models.Record) error
	deleteChildren func(tx *sql.Tx, id models.UUID) error
}

// specFor returns the descriptor for a synced entity type.
func specFor(t models.EntityType) (*tableSpec, error) {
	spec, ok := tableSpecs[t]
	if !ok {
		return nil, fmt.Errorf("unknown entity type: %q", t)
	}
	return spec, nil
}

func (s *tableSpec) allCols() []string {
	return append(append([]string{}, syncCols...), s.cols...)
}

func (s *tableSpec) selectSQL(where, order string) string {
	return "SELECT " + strings.Join(s.allCols(), ", ") + " FROM " + s.table + " WHERE " + where + order
}

func (s *tableSpec) upsertSQL() string {
	cols := s.allCols()
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	updates := make([]string, 0, len(cols)-1)
	for _, c := range cols[1:] {
		updates = append(updates, c+" = excluded."+c)
	}
	return "INSERT INTO " + s.table + " (" + strings.Join(cols, ", ") + ") VALUES (" + placeholders + ")" +
		" ON CONFLICT(id) DO UPDATE SET " + strings.Join(updates, ", ")
}

// scanMeta reads the shared columns into intermediate nullables and
// returns a closure applying them to a Syncable.
func metaArgs(m *models.Syncable) []interface{} {
	return []interface{}{
		m.ID, nullStr(m.UserID), m.CreatedAt, m.UpdatedAt,
		nullInt(m.SyncedAt), m.Deleted, nullInt(m.DeletedAt),
	}
}

type metaScan struct {
	userID    sql.NullString
	syncedAt  sql.NullInt64
	deletedAt sql.NullInt64
}

func (ms *metaScan) targets(m *models.Syncable) []interface{} {
	return []interface{}{
		&m.ID, &ms.userID, &m.CreatedAt, &m.UpdatedAt,
		&ms.syncedAt, &m.Deleted, &ms.deletedAt,
	}
}

func (ms *metaScan) apply(m *models.Syncable) {
	m.UserID = ms.userID.String
	m.SyncedAt = intPtr(ms.syncedAt)
	m.DeletedAt = intPtr(ms.deletedAt)
}

// Nullable conversion helpers.

func nullStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(p *int64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func nullFloat(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func intPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

// tableSpecs maps every synced entity type to its descriptor.
var tableSpecs = map[models.EntityType]*tableSpec{
	models.TypeSessions: {
		table:       "workout_sessions",
		cols:        []string{"template_id", "template_name", "started_at", "completed_at", "duration_seconds", "total_volume"},
		activeOrder: " ORDER BY started_at DESC",
		scan: func(row rowScanner) (models.Record, error) {
			var s models.WorkoutSession
			var ms metaScan
			var templateID sql.NullString
			var completedAt sql.NullInt64
			dest := append(ms.targets(&s.Syncable),
				&templateID, &s.TemplateName, &s.StartedAt, &completedAt, &s.DurationSeconds, &s.TotalVolume)
			if err := row.Scan(dest...); err != nil {
				return nil, err
			}
			ms.apply(&s.Syncable)
			s.TemplateID = models.UUID(templateID.String)
			s.CompletedAt = intPtr(completedAt)
			return &s, nil
		},
		args: func(rec models.Record) []interface{} {
			s := rec.(*models.WorkoutSession)
			return append(metaArgs(&s.Syncable),
				nullStr(string(s.TemplateID)), s.TemplateName, s.StartedAt,
				nullInt(s.CompletedAt), s.DurationSeconds, s.TotalVolume)
		},
		loadChildren:   loadSessionChildren,
		saveChildren:   saveSessionChildren,
		deleteChildren: deleteSessionChildren,
	},

	models.TypePersonalRecords: {
		table:       "personal_records",
		cols:        []string{"exercise_id", "exercise_name", "weight", "reps", "achieved_at", "session_id"},
		activeOrder: " ORDER BY achieved_at DESC",
		scan: func(row rowScanner) (models.Record, error) {
			var p models.PersonalRecord
			var ms metaScan
			var sessionID sql.NullString
			dest := append(ms.targets(&p.Syncable),
				&p.ExerciseID, &p.ExerciseName, &p.Weight, &p.Reps, &p.AchievedAt, &sessionID)
			if err := row.Scan(dest...); err != nil {
				return nil, err
			}
			ms.apply(&p.Syncable)
			p.SessionID = models.UUID(sessionID.String)
			return &p, nil
		},
		args: func(rec models.Record) []interface{} {
			p := rec.(*models.PersonalRecord)
			return append(metaArgs(&p.Syncable),
				p.ExerciseID, p.ExerciseName, p.Weight, p.Reps, p.AchievedAt,
				nullStr(string(p.SessionID)))
		},
	},

	models.TypeBodyMeasurements: {
		table:       "body_measurements",
		cols:        []string{"weight", "chest", "waist", "hips", "arms", "thighs", "measured_at", "notes"},
		activeOrder: " ORDER BY measured_at DESC",
		scan: func(row rowScanner) (models.Record, error) {
			var b models.BodyMeasurement
			var ms metaScan
			var weight, chest, waist, hips, arms, thighs sql.NullFloat64
			dest := append(ms.targets(&b.Syncable),
				&weight, &chest, &waist, &hips, &arms, &thighs, &b.MeasuredAt, &b.Notes)
			if err := row.Scan(dest...); err != nil {
				return nil, err
			}
			ms.apply(&b.Syncable)
			b.Weight = floatPtr(weight)
			b.Chest = floatPtr(chest)
			b.Waist = floatPtr(waist)
			b.Hips = floatPtr(hips)
			b.Arms = floatPtr(arms)
			b.Thighs = floatPtr(thighs)
			return &b, nil
		},
		args: func(rec models.Record) []interface{} {
			b := rec.(*models.BodyMeasurement)
			return append(metaArgs(&b.Syncable),
				nullFloat(b.Weight), nullFloat(b.Chest), nullFloat(b.Waist),
				nullFloat(b.Hips), nullFloat(b.Arms), nullFloat(b.Thighs),
				b.MeasuredAt, b.Notes)
		},
	},

	models.TypeTemplates: {
		table:       "workout_templates",
		cols:        []string{"name", "is_preset"},
		syncFilter:  " AND is_preset = 0",
		activeOrder: " ORDER BY name",
		scan: func(row rowScanner) (models.Record, error) {
			var t models.WorkoutTemplate
			var ms metaScan
			dest := append(ms.targets(&t.Syncable), &t.Name, &t.IsPreset)
			if err := row.Scan(dest...); err != nil {
				return nil, err
			}
			ms.apply(&t.Syncable)
			return &t, nil
		},
		args: func(rec models.Record) []interface{} {
			t := rec.(*models.WorkoutTemplate)
			return append(metaArgs(&t.Syncable), t.Name, t.IsPreset)
		},
		loadChildren:   loadTemplateChildren,
		saveChildren:   saveTemplateChildren,
		deleteChildren: deleteTemplateChildren,
	},

	models.TypeExercises: {
		table:       "exercises",
		cols:        []string{"name", "muscle_group", "equipment", "is_custom"},
		syncFilter:  " AND is_custom = 1",
		activeOrder: " ORDER BY name",
		scan: func(row rowScanner) (models.Record, error) {
			var e models.Exercise
			var ms metaScan
			dest := append(ms.targets(&e.Syncable), &e.Name, &e.MuscleGroup, &e.Equipment, &e.IsCustom)
			if err := row.Scan(dest...); err != nil {
				return nil, err
			}
			ms.apply(&e.Syncable)
			return &e, nil
		},
		args: func(rec models.Record) []interface{} {
			e := rec.(*models.Exercise)
			return append(metaArgs(&e.Syncable), e.Name, e.MuscleGroup, e.Equipment, e.IsCustom)
		},
	},
}

// ===== Session aggregate children =====

func loadSessionChildren(q queryer, rec models.Record) error {
	s := rec.(*models.WorkoutSession)

	rows, err := q.Query(`
	SELECT id, session_id, exercise_id, exercise_name, position
	FROM exercise_logs WHERE session_id = ? ORDER BY position`, s.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	s.ExerciseLogs = nil
	for rows.Next() {
		var l models.ExerciseLog
		if err := rows.Scan(&l.ID, &l.SessionID, &l.ExerciseID, &l.ExerciseName, &l.Position); err != nil {
			return err
		}
		s.ExerciseLogs = append(s.ExerciseLogs, l)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	// The store runs on a single connection; release it before the
	// nested set queries.
	rows.Close()

	for i := range s.ExerciseLogs {
		if err := loadSets(q, &s.ExerciseLogs[i]); err != nil {
			return err
		}
	}
	return nil
}

func loadSets(q queryer, l *models.ExerciseLog) error {
	rows, err := q.Query(`
	SELECT id, log_id, set_number, weight, reps, rpe, is_pr
	FROM sets WHERE log_id = ? ORDER BY set_number`, l.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	l.Sets = nil
	for rows.Next() {
		var set models.SetEntry
		var rpe sql.NullFloat64
		if err := rows.Scan(&set.ID, &set.LogID, &set.SetNumber, &set.Weight, &set.Reps, &rpe, &set.IsPR); err != nil {
			return err
		}
		set.RPE = floatPtr(rpe)
		l.Sets = append(l.Sets, set)
	}
	return rows.Err()
}

func saveSessionChildren(tx *sql.Tx, rec models.Record) error {
	s := rec.(*models.WorkoutSession)

	// Children are replaced wholesale; the aggregate is the write unit.
	if err := deleteSessionChildren(tx, s.ID); err != nil {
		return err
	}

	for i := range s.ExerciseLogs {
		l := &s.ExerciseLogs[i]
		l.SessionID = s.ID
		if _, err := tx.Exec(`
		INSERT INTO exercise_logs (id, session_id, exercise_id, exercise_name, position)
		VALUES (?, ?, ?, ?, ?)`,
			l.ID, l.SessionID, l.ExerciseID, l.ExerciseName, l.Position); err != nil {
			return err
		}
		for j := range l.Sets {
			set := &l.Sets[j]
			set.LogID = l.ID
			if _, err := tx.Exec(`
			INSERT INTO sets (id, log_id, set_number, weight, reps, rpe, is_pr)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
				set.ID, set.LogID, set.SetNumber, set.Weight, set.Reps, nullFloat(set.RPE), set.IsPR); err != nil {
				return err
			}
		}
	}
	return nil
}

func deleteSessionChildren(tx *sql.Tx, id models.UUID) error {
	// Sets cascade via exercise_logs.
	_, err := tx.Exec("DELETE FROM exercise_logs WHERE session_id = ?", id)
	return err
}

// ===== Template aggregate children =====

func loadTemplateChildren(q queryer, rec models.Record) error {
	t := rec.(*models.WorkoutTemplate)

	rows, err := q.Query(`
	SELECT id, template_id, exercise_id, position, note
	FROM template_exercises WHERE template_id = ? ORDER BY position`, t.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	t.Exercises = nil
	for rows.Next() {
		var te models.TemplateExercise
		if err := rows.Scan(&te.ID, &te.TemplateID, &te.ExerciseID, &te.Position, &te.Note); err != nil {
			return err
		}
		t.Exercises = append(t.Exercises, te)
	}
	return rows.Err()
}

func saveTemplateChildren(tx *sql.Tx, rec models.Record) error {
	t := rec.(*models.WorkoutTemplate)

	if err := deleteTemplateChildren(tx, t.ID); err != nil {
		return err
	}

	for i := range t.Exercises {
		te := &t.Exercises[i]
		te.TemplateID = t.ID
		if _, err := tx.Exec(`
		INSERT INTO template_exercises (id, template_id, exercise_id, position, note)
		VALUES (?, ?, ?, ?, ?)`,
			te.ID, te.TemplateID, te.ExerciseID, te.Position, te.Note); err != nil {
			return err
		}
	}
	return nil
}

func deleteTemplateChildren(tx *sql.Tx, id models.UUID) error {
	_, err := tx.Exec("DELETE FROM template_exercises WHERE template_id = ?", id)
	return err
}
