package syncer

import (
	"time"

	"github.com/kbradley/liftlog/internal/logging"
	"github.com/kbradley/liftlog/internal/models"
)

// Resolution rules, recorded in the conflict log.
const (
	RuleNewerCompletedAt = "newer_completed_at"
	RuleHigherWeight     = "higher_weight"
	RuleNewerUpdatedAt   = "newer_updated_at"
	RuleTombstone        = "tombstone"
)

// Winner identifies which side a resolution kept.
type Winner string

const (
	WinnerLocal  Winner = "local"
	WinnerRemote Winner = "remote"
)

// Resolution is the outcome of resolving one local/remote pair.
type Resolution struct {
	Winner Winner
	Rule   string
}

// Resolver applies the per-entity conflict rules. Both inputs are
// non-nil versions of the same logical record.
type Resolver struct {
	logger *logging.Logger
	now    func() int64
}

// NewResolver creates a Resolver.
func NewResolver(logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Get()
	}
	return &Resolver{
		logger: logger,
		now:    func() int64 { return time.Now().Unix() },
	}
}

// Resolve decides which version of a record survives.
//
// Deletions are monotonic: a tombstone on either side always wins, so a
// deleted record can never be resurrected by a stale copy.
//
// Workout sessions compare completion time: a strictly newer completedAt
// wins, and an in-progress session (nil completedAt) never beats a
// completed one. Personal records keep the heavier lift regardless of
// timestamps. Everything else is last-write-wins on updatedAt, with
// ties kept local.
func (r *Resolver) Resolve(local, remote models.Record) Resolution {
	res := r.decide(local, remote)

	r.logger.Info("conflict resolved", map[string]interface{}{
		"entity_type":      string(local.EntityType()),
		"record_id":        string(local.Meta().ID),
		"winner":           string(res.Winner),
		"rule":             res.Rule,
		"local_timestamp":  local.Meta().UpdatedAt,
		"remote_timestamp": remote.Meta().UpdatedAt,
	})

	return res
}

func (r *Resolver) decide(local, remote models.Record) Resolution {
	localMeta, remoteMeta := local.Meta(), remote.Meta()

	if localMeta.Deleted != remoteMeta.Deleted {
		if remoteMeta.Deleted {
			return Resolution{Winner: WinnerRemote, Rule: RuleTombstone}
		}
		return Resolution{Winner: WinnerLocal, Rule: RuleTombstone}
	}

	switch l := local.(type) {
	case *models.WorkoutSession:
		return resolveSession(l, remote.(*models.WorkoutSession))
	case *models.PersonalRecord:
		return resolveRecord(l, remote.(*models.PersonalRecord))
	}

	if remoteMeta.UpdatedAt > localMeta.UpdatedAt {
		return Resolution{Winner: WinnerRemote, Rule: RuleNewerUpdatedAt}
	}
	return Resolution{Winner: WinnerLocal, Rule: RuleNewerUpdatedAt}
}

func resolveSession(local, remote *models.WorkoutSession) Resolution {
	switch {
	case local.CompletedAt == nil && remote.CompletedAt == nil:
		// Both still in progress, fall back to last write.
		if remote.UpdatedAt > local.UpdatedAt {
			return Resolution{Winner: WinnerRemote, Rule: RuleNewerUpdatedAt}
		}
		return Resolution{Winner: WinnerLocal, Rule: RuleNewerUpdatedAt}
	case remote.CompletedAt == nil:
		return Resolution{Winner: WinnerLocal, Rule: RuleNewerCompletedAt}
	case local.CompletedAt == nil:
		return Resolution{Winner: WinnerRemote, Rule: RuleNewerCompletedAt}
	case *remote.CompletedAt > *local.CompletedAt:
		return Resolution{Winner: WinnerRemote, Rule: RuleNewerCompletedAt}
	}
	return Resolution{Winner: WinnerLocal, Rule: RuleNewerCompletedAt}
}

func resolveRecord(local, remote *models.PersonalRecord) Resolution {
	if remote.Beats(local) {
		return Resolution{Winner: WinnerRemote, Rule: RuleHigherWeight}
	}
	return Resolution{Winner: WinnerLocal, Rule: RuleHigherWeight}
}

// ConflictEntry builds the audit row for a resolved conflict.
func (r *Resolver) ConflictEntry(local, remote models.Record, res Resolution) *models.ConflictLog {
	return &models.ConflictLog{
		EntityType:      local.EntityType(),
		RecordID:        local.Meta().ID,
		LocalTimestamp:  local.Meta().UpdatedAt,
		RemoteTimestamp: remote.Meta().UpdatedAt,
		Resolution:      string(res.Winner),
		Rule:            res.Rule,
		DetectedAt:      r.now(),
	}
}
