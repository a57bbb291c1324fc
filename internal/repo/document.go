package repo

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Waferline/internal/codec"
	"github.com/shaiso/Waferline/internal/domain"
)

// groupDoc — persistence-форма агрегата (JSONB document).
//
// Stages сериализуются через codec.Record: вариант StageData восстановим
// только по дискриминатору, прямой json.Unmarshal доменного Stage невозможен.
type groupDoc struct {
	ID               uuid.UUID       `json:"id"`
	Name             string          `json:"name"`
	Owner            string          `json:"owner"`
	Experiments      []experimentDoc `json:"experiments"`
	SubmittedToQueue bool            `json:"submitted_to_queue"`
	CreatedAt        time.Time       `json:"created_at"`
}

type experimentDoc struct {
	ID         uuid.UUID        `json:"id"`
	Title      string           `json:"title"`
	State      string           `json:"state"`
	IsArchived bool             `json:"is_archived"`
	Material   *domain.Material `json:"material,omitempty"`
	Stages     []codec.Record   `json:"stages"`
}

// encodeGroup сериализует агрегат в JSONB document.
func encodeGroup(group *domain.ExperimentGroup) ([]byte, error) {
	doc := groupDoc{
		ID:               group.ID,
		Name:             group.Name,
		Owner:            group.Owner,
		Experiments:      make([]experimentDoc, len(group.Experiments)),
		SubmittedToQueue: group.SubmittedToQueue,
		CreatedAt:        group.CreatedAt,
	}
	for i := range group.Experiments {
		exp := &group.Experiments[i]
		expDoc := experimentDoc{
			ID:         exp.ID,
			Title:      exp.Title,
			State:      exp.State.String(),
			IsArchived: exp.IsArchived,
			Material:   exp.Material,
			Stages:     make([]codec.Record, len(exp.Stages)),
		}
		for j := range exp.Stages {
			expDoc.Stages[j] = codec.RecordFromStage(&exp.Stages[j])
		}
		doc.Experiments[i] = expDoc
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal group document: %w", err)
	}
	return data, nil
}

// decodeGroup восстанавливает агрегат из JSONB document.
func decodeGroup(data []byte) (*domain.ExperimentGroup, error) {
	var doc groupDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal group document: %w", err)
	}

	group := &domain.ExperimentGroup{
		ID:               doc.ID,
		Name:             doc.Name,
		Owner:            doc.Owner,
		Experiments:      make([]domain.Experiment, len(doc.Experiments)),
		SubmittedToQueue: doc.SubmittedToQueue,
		CreatedAt:        doc.CreatedAt,
	}
	for i := range doc.Experiments {
		expDoc := &doc.Experiments[i]
		exp := domain.Experiment{
			ID:         expDoc.ID,
			Title:      expDoc.Title,
			State:      domain.ParseExperimentState(expDoc.State),
			IsArchived: expDoc.IsArchived,
			Material:   expDoc.Material,
			Stages:     make([]domain.Stage, len(expDoc.Stages)),
		}
		for j := range expDoc.Stages {
			exp.Stages[j] = expDoc.Stages[j].ToStage()
		}
		group.Experiments[i] = exp
	}
	return group, nil
}

// cloneGroup делает глубокую копию агрегата через document round-trip.
func cloneGroup(group *domain.ExperimentGroup) (*domain.ExperimentGroup, error) {
	data, err := encodeGroup(group)
	if err != nil {
		return nil, err
	}
	return decodeGroup(data)
}
