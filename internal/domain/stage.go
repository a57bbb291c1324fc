package domain

import (
	"time"

	"github.com/google/uuid"
)

// StageType — дискриминатор варианта stage.
//
// Определяет форму StageData:
//   - Class — набор независимо отслеживаемых conditions
//   - Olb / Ppv / Maestro — одна операция со статусом на самом stage
type StageType int

const (
	// StageTypeClass — class-тест с вложенными conditions.
	StageTypeClass StageType = 1

	// StageTypeOlb — OLB-операция (one-line burn-in).
	StageTypeOlb StageType = 2

	// StageTypePpv — PPV-операция (post-package verification).
	StageTypePpv StageType = 3

	// StageTypeMaestro — операция на стенде Maestro.
	StageTypeMaestro StageType = 4
)

// String возвращает имя типа stage.
func (t StageType) String() string {
	switch t {
	case StageTypeClass:
		return "Class"
	case StageTypeOlb:
		return "Olb"
	case StageTypePpv:
		return "Ppv"
	case StageTypeMaestro:
		return "Maestro"
	default:
		return "Unknown"
	}
}

// IsValid возвращает true, если значение типа известно.
func (t StageType) IsValid() bool {
	switch t {
	case StageTypeClass, StageTypeOlb, StageTypePpv, StageTypeMaestro:
		return true
	default:
		return false
	}
}

// Stage — этап эксперимента.
//
// Stage хранит вариант данных (Data), форма которого определяется Type.
// Порядок stages внутри эксперимента задаётся SequenceID.
type Stage struct {
	// ID — уникальный идентификатор stage.
	// Для не-Class stages он же служит correlation id для callbacks тестера.
	ID uuid.UUID `json:"id"`

	// Type — дискриминатор варианта.
	Type StageType `json:"stage_type"`

	// SequenceID — порядковый номер stage внутри эксперимента.
	SequenceID int `json:"sequence_id"`

	// Data — данные варианта. Конкретный тип определяется Type.
	Data StageData `json:"stage_data"`
}

// StageData — закрытое объединение вариантов данных stage.
//
// Реализации: *ClassData, *OlbData, *PpvData, *MaestroData.
type StageData interface {
	// StageType возвращает дискриминатор, которому соответствует вариант.
	StageType() StageType
}

// StatusHolder — сущность, несущая ProcessStatus.
//
// Реализуется *Condition (внутри Class stage) и *OperationData
// (Olb/Ppv/Maestro stages). Через этот интерфейс Lifecycle Engine и
// bulk-операции применяют переходы статуса единообразно.
type StatusHolder interface {
	// CurrentStatus возвращает текущий статус.
	CurrentStatus() ProcessStatus

	// ApplyStatus применяет новый статус.
	// CompletionTime устанавливается в now только для COMPLETED,
	// для любого другого статуса очищается.
	ApplyStatus(status ProcessStatus, now time.Time)

	// SetStatusComment устанавливает комментарий смены статуса.
	SetStatusComment(comment string)

	// ClearStatusComment очищает комментарий смены статуса.
	ClearStatusComment()
}

// ClassData — вариант Class: упорядоченный набор conditions.
type ClassData struct {
	// Conditions — тестируемые conditions в порядке выполнения.
	Conditions []Condition `json:"conditions"`
}

// StageType реализует StageData.
func (*ClassData) StageType() StageType { return StageTypeClass }

// Condition — отдельно отслеживаемая единица Class stage.
type Condition struct {
	// ID — уникальный идентификатор condition.
	// Служит correlation id для callbacks тестера.
	ID uuid.UUID `json:"id"`

	// Sequence — порядковый номер внутри stage.
	Sequence int `json:"sequence"`

	// Status — текущий статус выполнения.
	Status ProcessStatus `json:"process_status"`

	// StatusChangeComment — комментарий последней смены статуса.
	StatusChangeComment string `json:"status_change_comment,omitempty"`

	// CompletionTime — время завершения. Не-nil только для COMPLETED.
	CompletionTime *time.Time `json:"completion_time,omitempty"`

	// Result — результат теста. Заполняется отдельным callback'ом.
	Result *ConditionResult `json:"condition_result,omitempty"`
}

// CurrentStatus реализует StatusHolder.
func (c *Condition) CurrentStatus() ProcessStatus { return c.Status }

// ApplyStatus реализует StatusHolder.
func (c *Condition) ApplyStatus(status ProcessStatus, now time.Time) {
	c.Status = status
	if status == StatusCompleted {
		c.CompletionTime = &now
	} else {
		c.CompletionTime = nil
	}
}

// SetStatusComment реализует StatusHolder.
func (c *Condition) SetStatusComment(comment string) { c.StatusChangeComment = comment }

// ClearStatusComment реализует StatusHolder.
func (c *Condition) ClearStatusComment() { c.StatusChangeComment = "" }

// ConditionResult — результат выполнения condition.
type ConditionResult struct {
	// Passed — прошёл ли тест.
	Passed bool `json:"passed"`

	// Comment — комментарий к результату.
	Comment string `json:"comment,omitempty"`
}

// OperationData — общие данные одностатусных вариантов (Olb/Ppv/Maestro).
//
// В отличие от Class, статус живёт прямо на stage, без вложенных conditions.
type OperationData struct {
	// Operation — имя операции на оборудовании.
	Operation string `json:"operation"`

	// Status — текущий статус выполнения.
	Status ProcessStatus `json:"process_status"`

	// StatusChangeComment — комментарий последней смены статуса.
	StatusChangeComment string `json:"status_change_comment,omitempty"`

	// CompletionTime — время завершения. Не-nil только для COMPLETED.
	CompletionTime *time.Time `json:"completion_time,omitempty"`
}

// CurrentStatus реализует StatusHolder.
func (o *OperationData) CurrentStatus() ProcessStatus { return o.Status }

// ApplyStatus реализует StatusHolder.
func (o *OperationData) ApplyStatus(status ProcessStatus, now time.Time) {
	o.Status = status
	if status == StatusCompleted {
		o.CompletionTime = &now
	} else {
		o.CompletionTime = nil
	}
}

// SetStatusComment реализует StatusHolder.
func (o *OperationData) SetStatusComment(comment string) { o.StatusChangeComment = comment }

// ClearStatusComment реализует StatusHolder.
func (o *OperationData) ClearStatusComment() { o.StatusChangeComment = "" }

// OlbData — вариант Olb.
type OlbData struct {
	OperationData
}

// StageType реализует StageData.
func (*OlbData) StageType() StageType { return StageTypeOlb }

// PpvData — вариант Ppv.
type PpvData struct {
	OperationData
}

// StageType реализует StageData.
func (*PpvData) StageType() StageType { return StageTypePpv }

// MaestroData — вариант Maestro.
type MaestroData struct {
	OperationData
}

// StageType реализует StageData.
func (*MaestroData) StageType() StageType { return StageTypeMaestro }

// Holder возвращает StatusHolder stage-уровня для одностатусных вариантов.
// Для Class stage возвращает nil — статусы живут на conditions.
func (s *Stage) Holder() StatusHolder {
	switch data := s.Data.(type) {
	case *OlbData:
		return &data.OperationData
	case *PpvData:
		return &data.OperationData
	case *MaestroData:
		return &data.OperationData
	default:
		return nil
	}
}

// Class возвращает данные Class-варианта или nil.
func (s *Stage) Class() *ClassData {
	if data, ok := s.Data.(*ClassData); ok {
		return data
	}
	return nil
}

// FindCondition ищет condition по ID внутри Class stage.
func (s *Stage) FindCondition(id uuid.UUID) *Condition {
	class := s.Class()
	if class == nil {
		return nil
	}
	for i := range class.Conditions {
		if class.Conditions[i].ID == id {
			return &class.Conditions[i]
		}
	}
	return nil
}
