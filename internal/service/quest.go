package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"wholefood-engine/internal/metrics"
	"wholefood-engine/internal/model"
	"wholefood-engine/internal/quest"
	"wholefood-engine/internal/repository"
)

// QuestProgress is the result of a quest progress update.
type QuestProgress struct {
	QuestID      uuid.UUID    `json:"quest_id"`
	CurrentValue float64      `json:"current_value"`
	TargetValue  float64      `json:"target_value"`
	Completed    bool         `json:"completed"`
	XPGained     int64        `json:"xp_gained"`
	Award        *AwardResult `json:"award,omitempty"`
}

// QuestService handles daily quest generation and progress.
type QuestService struct {
	store   *repository.Store
	metrics *metrics.Metrics
	clock   *Clock
}

// NewQuestService creates a new QuestService instance.
func NewQuestService(store *repository.Store, m *metrics.Metrics, clock *Clock) *QuestService {
	return &QuestService{
		store:   store,
		metrics: m,
		clock:   clock,
	}
}

// GetOrGenerateQuests returns the user's quests of a day, generating the
// missing ones. The selection depends only on (user, day), so concurrent or
// repeated calls converge on the same three quests.
func (s *QuestService) GetOrGenerateQuests(ctx context.Context, userID uuid.UUID, date time.Time) ([]*model.DailyQuest, error) {
	day := s.clock.Day(date)

	existing, err := s.store.Quests.ListByUserDate(ctx, userID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to get quests: %w", err)
	}
	if len(existing) >= len(quest.Types) {
		return existing, nil
	}

	var quests []*model.DailyQuest
	err = s.store.InTx(ctx, func(tx *repository.Store) error {
		if err := ensureUser(ctx, tx, userID); err != nil {
			return err
		}
		targets, err := tx.Nutrition.GetTargets(ctx, userID)
		if err != nil {
			return err
		}

		present := make(map[string]bool, len(existing))
		for _, q := range existing {
			present[q.QuestType] = true
		}
		for _, draft := range quest.Generate(userID, day, targets) {
			if present[string(draft.Type)] {
				continue
			}
			// A concurrent generator may win the insert; the re-read below
			// returns its row, which is identical.
			if _, err := tx.Quests.InsertIfAbsent(ctx, &model.DailyQuest{
				UserID:      userID,
				Date:        day,
				QuestType:   string(draft.Type),
				Title:       draft.Title,
				Description: draft.Description,
				TargetValue: draft.Target,
				XPReward:    draft.XPReward,
				Metadata:    draft.Metadata,
			}); err != nil {
				return err
			}
		}

		quests, err = tx.Quests.ListByUserDate(ctx, userID, day)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate quests: %w", err)
	}
	return quests, nil
}

// UpdateQuestProgress adds delta to a quest's progress. The value is capped at
// the target, negative deltas count as zero, and the update that first
// reaches the target pays the quest's XP. Updates to a completed quest are
// no-ops reporting zero XP.
func (s *QuestService) UpdateQuestProgress(ctx context.Context, questID uuid.UUID, delta float64) (*QuestProgress, error) {
	return s.update(ctx, questID, func(current, target float64) (float64, bool) {
		return quest.Advance(current, target, delta)
	})
}

// step computes a quest's next progress value and whether it completes now.
type step func(current, target float64) (float64, bool)

func (s *QuestService) update(ctx context.Context, questID uuid.UUID, apply step) (*QuestProgress, error) {
	var progress *QuestProgress
	var j *journal
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		q, err := tx.Quests.GetForUpdate(ctx, questID)
		if err != nil {
			return err
		}
		j = newJournal(q.UserID)
		progress, err = s.advance(ctx, tx, j, q, apply)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrQuestNotFound) {
			return nil, ErrQuestNotFound
		}
		return nil, fmt.Errorf("failed to update quest progress: %w", err)
	}

	j.publish(s.metrics)
	return progress, nil
}

// ProgressMetric advances every open quest of the day that tracks metric.
// Count metrics add value to the progress. Level metrics such as the daily
// score raise the progress to value when it is higher.
func (s *QuestService) ProgressMetric(ctx context.Context, userID uuid.UUID, date time.Time, metric string, value float64) ([]*QuestProgress, error) {
	quests, err := s.GetOrGenerateQuests(ctx, userID, date)
	if err != nil {
		return nil, err
	}

	var updates []*QuestProgress
	for _, q := range quests {
		if q.Completed || q.Metric() != metric {
			continue
		}
		var p *QuestProgress
		if quest.IsLevel(metric) {
			p, err = s.update(ctx, q.ID, func(current, target float64) (float64, bool) {
				return quest.Raise(current, target, value)
			})
		} else {
			p, err = s.UpdateQuestProgress(ctx, q.ID, value)
		}
		if err != nil {
			return nil, err
		}
		updates = append(updates, p)
	}
	return updates, nil
}

func (s *QuestService) advance(ctx context.Context, tx *repository.Store, j *journal, q *model.DailyQuest, apply step) (*QuestProgress, error) {
	progress := &QuestProgress{
		QuestID:      q.ID,
		CurrentValue: q.CurrentValue,
		TargetValue:  q.TargetValue,
		Completed:    q.Completed,
	}
	if q.Completed {
		return progress, nil
	}

	next, completedNow := apply(q.CurrentValue, q.TargetValue)
	if next == q.CurrentValue && !completedNow {
		return progress, nil
	}

	saved, err := tx.Quests.SaveProgress(ctx, q.ID, next, completedNow)
	if err != nil {
		return nil, err
	}
	progress.CurrentValue = saved.CurrentValue
	progress.Completed = saved.Completed
	if !completedNow {
		return progress, nil
	}

	j.quests = append(j.quests, q.QuestType)
	if q.XPReward > 0 {
		progress.Award, err = award(ctx, tx, j, q.UserID, q.XPReward, model.Reason(model.ReasonQuest, q.Title))
		if err != nil {
			return nil, err
		}
		progress.XPGained = progress.Award.XPGained
	}
	return progress, nil
}
