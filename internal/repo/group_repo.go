package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Waferline/internal/domain"
)

// GroupRepo — репозиторий агрегатов ExperimentGroup.
//
// Агрегат хранится целиком как JSONB document; отдельные таблицы
// experiment_index / stage_index / condition_index отображают
// идентификаторы вложенных сущностей на группу и перестраиваются
// транзакционно при каждой записи агрегата. Любой Update* переписывает
// document целиком — хранилище никогда не видит частичную запись.
type GroupRepo struct {
	pool *pgxpool.Pool
}

// NewGroupRepo создаёт новый GroupRepo.
func NewGroupRepo(pool *pgxpool.Pool) *GroupRepo {
	return &GroupRepo{pool: pool}
}

// AddGroup сохраняет новую группу.
func (r *GroupRepo) AddGroup(ctx context.Context, group *domain.ExperimentGroup) error {
	doc, err := encodeGroup(group)
	if err != nil {
		return err
	}

	return r.inTx(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO experiment_groups (id, owner, submitted_to_queue, doc, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`
		_, err := tx.Exec(ctx, query, group.ID, group.Owner, group.SubmittedToQueue, doc, group.CreatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return fmt.Errorf("group %s: %w", group.ID, ErrAlreadyExists)
			}
			return fmt.Errorf("insert group: %w", err)
		}
		return r.rebuildIndexes(ctx, tx, group)
	})
}

// RemoveGroup удаляет группу и её индексы.
// Используется только компенсацией saga — доменное удаление логическое.
func (r *GroupRepo) RemoveGroup(ctx context.Context, id uuid.UUID) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if err := r.dropIndexes(ctx, tx, id); err != nil {
			return err
		}
		result, err := tx.Exec(ctx, `DELETE FROM experiment_groups WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete group: %w", err)
		}
		if result.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// UpdateGroup переписывает группу целиком.
func (r *GroupRepo) UpdateGroup(ctx context.Context, group *domain.ExperimentGroup) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		return r.saveGroup(ctx, tx, group)
	})
}

// GetGroup возвращает группу по ID.
func (r *GroupRepo) GetGroup(ctx context.Context, id uuid.UUID) (*domain.ExperimentGroup, error) {
	return r.scanGroup(r.pool.QueryRow(ctx,
		`SELECT doc FROM experiment_groups WHERE id = $1`, id))
}

// GetGroupByConditionID возвращает группу, содержащую condition.
func (r *GroupRepo) GetGroupByConditionID(ctx context.Context, conditionID uuid.UUID) (*domain.ExperimentGroup, error) {
	query := `
		SELECT g.doc
		FROM experiment_groups g
		JOIN condition_index ci ON ci.group_id = g.id
		WHERE ci.condition_id = $1
	`
	return r.scanGroup(r.pool.QueryRow(ctx, query, conditionID))
}

// GetGroupByStageID возвращает группу, содержащую не-Class stage.
func (r *GroupRepo) GetGroupByStageID(ctx context.Context, stageID uuid.UUID) (*domain.ExperimentGroup, error) {
	query := `
		SELECT g.doc
		FROM experiment_groups g
		JOIN stage_index si ON si.group_id = g.id
		WHERE si.stage_id = $1
	`
	return r.scanGroup(r.pool.QueryRow(ctx, query, stageID))
}

// GetGroupByExperimentID возвращает группу, содержащую эксперимент.
func (r *GroupRepo) GetGroupByExperimentID(ctx context.Context, experimentID uuid.UUID) (*domain.ExperimentGroup, error) {
	query := `
		SELECT g.doc
		FROM experiment_groups g
		JOIN experiment_index ei ON ei.group_id = g.id
		WHERE ei.experiment_id = $1
	`
	return r.scanGroup(r.pool.QueryRow(ctx, query, experimentID))
}

// UpdateExperiment переписывает один эксперимент внутри document'а группы.
func (r *GroupRepo) UpdateExperiment(ctx context.Context, groupID uuid.UUID, exp *domain.Experiment) error {
	return r.mutateGroup(ctx, groupID, func(group *domain.ExperimentGroup) error {
		target := group.FindExperiment(exp.ID)
		if target == nil {
			return fmt.Errorf("experiment %s: %w", exp.ID, ErrNotFound)
		}
		*target = *exp
		return nil
	})
}

// UpdateExperimentCondition сохраняет мутированный condition.
func (r *GroupRepo) UpdateExperimentCondition(ctx context.Context, groupID, experimentID, stageID uuid.UUID, cond *domain.Condition) error {
	return r.mutateGroup(ctx, groupID, func(group *domain.ExperimentGroup) error {
		exp := group.FindExperiment(experimentID)
		if exp == nil {
			return fmt.Errorf("experiment %s: %w", experimentID, ErrNotFound)
		}
		for i := range exp.Stages {
			if exp.Stages[i].ID != stageID {
				continue
			}
			target := exp.Stages[i].FindCondition(cond.ID)
			if target == nil {
				return fmt.Errorf("condition %s: %w", cond.ID, ErrNotFound)
			}
			*target = *cond
			return nil
		}
		return fmt.Errorf("stage %s: %w", stageID, ErrNotFound)
	})
}

// UpdateExperimentStage сохраняет мутированный не-Class stage.
func (r *GroupRepo) UpdateExperimentStage(ctx context.Context, groupID, experimentID uuid.UUID, stage *domain.Stage) error {
	return r.mutateGroup(ctx, groupID, func(group *domain.ExperimentGroup) error {
		exp := group.FindExperiment(experimentID)
		if exp == nil {
			return fmt.Errorf("experiment %s: %w", experimentID, ErrNotFound)
		}
		for i := range exp.Stages {
			if exp.Stages[i].ID == stage.ID {
				exp.Stages[i] = *stage
				return nil
			}
		}
		return fmt.Errorf("stage %s: %w", stage.ID, ErrNotFound)
	})
}

// UpdateExperimentMaterialIssue сохраняет состояние выдачи материала.
func (r *GroupRepo) UpdateExperimentMaterialIssue(ctx context.Context, groupID, experimentID uuid.UUID, issue *domain.MaterialIssue) error {
	return r.mutateGroup(ctx, groupID, func(group *domain.ExperimentGroup) error {
		exp := group.FindExperiment(experimentID)
		if exp == nil {
			return fmt.Errorf("experiment %s: %w", experimentID, ErrNotFound)
		}
		*exp.EnsureMaterialIssue() = *issue
		return nil
	})
}

// UpdateGroupQueueState сохраняет флаг отправки группы в очередь.
func (r *GroupRepo) UpdateGroupQueueState(ctx context.Context, groupID uuid.UUID, submitted bool) error {
	return r.mutateGroup(ctx, groupID, func(group *domain.ExperimentGroup) error {
		group.SubmittedToQueue = submitted
		return nil
	})
}

// ListUnsubmitted возвращает группы, не отправленные в очередь.
func (r *GroupRepo) ListUnsubmitted(ctx context.Context, limit int) ([]domain.ExperimentGroup, error) {
	query := `
		SELECT doc
		FROM experiment_groups
		WHERE submitted_to_queue = false
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list unsubmitted groups: %w", err)
	}
	defer rows.Close()

	var groups []domain.ExperimentGroup
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		group, err := decodeGroup(doc)
		if err != nil {
			return nil, err
		}
		groups = append(groups, *group)
	}
	return groups, rows.Err()
}

// --- Helpers ---

// inTx выполняет fn внутри транзакции.
func (r *GroupRepo) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// mutateGroup — read-modify-write агрегата: document читается с блокировкой,
// мутируется и переписывается целиком вместе с индексами.
func (r *GroupRepo) mutateGroup(ctx context.Context, groupID uuid.UUID, mutate func(*domain.ExperimentGroup) error) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		var doc []byte
		err := tx.QueryRow(ctx,
			`SELECT doc FROM experiment_groups WHERE id = $1 FOR UPDATE`, groupID).Scan(&doc)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("select group for update: %w", err)
		}

		group, err := decodeGroup(doc)
		if err != nil {
			return err
		}
		if err := mutate(group); err != nil {
			return err
		}
		return r.saveGroup(ctx, tx, group)
	})
}

// saveGroup переписывает document и индексы группы внутри транзакции.
func (r *GroupRepo) saveGroup(ctx context.Context, tx pgx.Tx, group *domain.ExperimentGroup) error {
	doc, err := encodeGroup(group)
	if err != nil {
		return err
	}

	result, err := tx.Exec(ctx,
		`UPDATE experiment_groups SET owner = $2, submitted_to_queue = $3, doc = $4 WHERE id = $1`,
		group.ID, group.Owner, group.SubmittedToQueue, doc)
	if err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	if err := r.dropIndexes(ctx, tx, group.ID); err != nil {
		return err
	}
	return r.rebuildIndexes(ctx, tx, group)
}

// dropIndexes удаляет индексные записи группы.
func (r *GroupRepo) dropIndexes(ctx context.Context, tx pgx.Tx, groupID uuid.UUID) error {
	for _, table := range []string{"experiment_index", "stage_index", "condition_index"} {
		if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE group_id = $1`, groupID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

// rebuildIndexes строит индексные записи по текущему содержимому агрегата.
// В stage_index попадают только не-Class stages: correlation id для
// Class stage — это id его conditions.
func (r *GroupRepo) rebuildIndexes(ctx context.Context, tx pgx.Tx, group *domain.ExperimentGroup) error {
	for i := range group.Experiments {
		exp := &group.Experiments[i]
		_, err := tx.Exec(ctx,
			`INSERT INTO experiment_index (experiment_id, group_id) VALUES ($1, $2)`,
			exp.ID, group.ID)
		if err != nil {
			return fmt.Errorf("index experiment: %w", err)
		}

		for j := range exp.Stages {
			stage := &exp.Stages[j]
			if class := stage.Class(); class != nil {
				for k := range class.Conditions {
					_, err := tx.Exec(ctx,
						`INSERT INTO condition_index (condition_id, group_id) VALUES ($1, $2)`,
						class.Conditions[k].ID, group.ID)
					if err != nil {
						return fmt.Errorf("index condition: %w", err)
					}
				}
				continue
			}
			_, err := tx.Exec(ctx,
				`INSERT INTO stage_index (stage_id, group_id) VALUES ($1, $2)`,
				stage.ID, group.ID)
			if err != nil {
				return fmt.Errorf("index stage: %w", err)
			}
		}
	}
	return nil
}

// scanGroup сканирует document одной строки в агрегат.
func (r *GroupRepo) scanGroup(row pgx.Row) (*domain.ExperimentGroup, error) {
	var doc []byte
	err := row.Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan group: %w", err)
	}
	return decodeGroup(doc)
}
