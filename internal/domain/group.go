package domain

import (
	"time"

	"github.com/google/uuid"
)

// ExperimentGroup — партия экспериментов, отправляемая на постановку вместе.
//
// Group — корень агрегата: все записи в хранилище идут через него целиком
// (или через целый Experiment), никогда по отдельным полям.
type ExperimentGroup struct {
	// ID — уникальный идентификатор группы.
	ID uuid.UUID `json:"id"`

	// Name — имя группы.
	Name string `json:"name"`

	// Owner — владелец группы (логин инженера).
	Owner string `json:"owner"`

	// Experiments — эксперименты группы.
	Experiments []Experiment `json:"experiments"`

	// SubmittedToQueue — отправлена ли группа в очередь постановки.
	SubmittedToQueue bool `json:"submitted_to_queue"`

	// CreatedAt — время создания группы.
	CreatedAt time.Time `json:"created_at"`
}

// FindExperiment ищет эксперимент по ID.
func (g *ExperimentGroup) FindExperiment(id uuid.UUID) *Experiment {
	for i := range g.Experiments {
		if g.Experiments[i].ID == id {
			return &g.Experiments[i]
		}
	}
	return nil
}

// Experiment — определение одного тестового прогона.
type Experiment struct {
	// ID — уникальный идентификатор эксперимента.
	ID uuid.UUID `json:"id"`

	// Title — название эксперимента.
	Title string `json:"title"`

	// State — состояние готовности (DRAFT/READY).
	State ExperimentState `json:"state"`

	// IsArchived — логическое удаление. Физически эксперименты не удаляются.
	IsArchived bool `json:"is_archived"`

	// Material — материал эксперимента (wafer lot).
	Material *Material `json:"material,omitempty"`

	// Stages — упорядоченные этапы эксперимента.
	Stages []Stage `json:"stages"`
}

// Material — материал, выданный под эксперимент.
type Material struct {
	// LotID — идентификатор партии материала.
	LotID string `json:"lot_id,omitempty"`

	// Issue — состояние выдачи материала.
	Issue *MaterialIssue `json:"issue,omitempty"`
}

// MaterialIssue — состояние шага выдачи материала.
//
// ErrorComments имеет смысл только пока IsRequired=true: при успешном
// повторе после сбойного issue-шага комментарий очищается, чтобы не
// показывать устаревшую ошибку.
type MaterialIssue struct {
	// IsRequired — требуется ли выдача материала.
	IsRequired bool `json:"is_required"`

	// ErrorComments — текст ошибки последнего сбойного issue-шага.
	ErrorComments string `json:"error_comments,omitempty"`
}

// Holders возвращает все StatusHolder эксперимента в порядке обхода:
// для Class stages — каждый condition, для остальных — сам stage.
func (e *Experiment) Holders() []StatusHolder {
	var holders []StatusHolder
	for i := range e.Stages {
		stage := &e.Stages[i]
		if class := stage.Class(); class != nil {
			for j := range class.Conditions {
				holders = append(holders, &class.Conditions[j])
			}
			continue
		}
		if h := stage.Holder(); h != nil {
			holders = append(holders, h)
		}
	}
	return holders
}

// CancelAll переводит в CANCELING все сущности эксперимента из cancelable set
// и проставляет им комментарий. Терминальные сущности не трогаются.
// Сущность уже в CANCELING не считается изменённой и сохраняет прежний
// комментарий, поэтому повторный Cancel без новых изменений возвращает 0.
// Возвращает количество изменённых сущностей.
func (e *Experiment) CancelAll(comment string, now time.Time) int {
	var updated int
	for _, h := range e.Holders() {
		status := h.CurrentStatus()
		if status == StatusCanceling || !status.IsCancelable() {
			continue
		}
		h.ApplyStatus(StatusCanceling, now)
		h.SetStatusComment(comment)
		updated++
	}
	return updated
}

// ResumeAll переводит в RESUMING все сущности эксперимента из PAUSED
// и проставляет им комментарий. Возвращает количество изменённых сущностей.
func (e *Experiment) ResumeAll(comment string, now time.Time) int {
	var updated int
	for _, h := range e.Holders() {
		if !h.CurrentStatus().IsResumable() {
			continue
		}
		h.ApplyStatus(StatusResuming, now)
		h.SetStatusComment(comment)
		updated++
	}
	return updated
}

// HasMaterialIssueError возвращает true, если у эксперимента записана
// ошибка сбойного issue-шага.
func (e *Experiment) HasMaterialIssueError() bool {
	return e.Material != nil && e.Material.Issue != nil && e.Material.Issue.ErrorComments != ""
}

// EnsureMaterialIssue возвращает MaterialIssue эксперимента, создавая
// недостающие звенья при необходимости.
func (e *Experiment) EnsureMaterialIssue() *MaterialIssue {
	if e.Material == nil {
		e.Material = &Material{}
	}
	if e.Material.Issue == nil {
		e.Material.Issue = &MaterialIssue{}
	}
	return e.Material.Issue
}
