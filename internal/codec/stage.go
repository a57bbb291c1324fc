package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shaiso/Waferline/internal/domain"
)

// Имена полей wire-формата.
const (
	fieldID         = "Id"
	fieldStageID    = "StageId"
	fieldStageType  = "StageType"
	fieldSequenceID = "SequenceId"
	fieldStageData  = "StageData"
)

// Record — полная wire-запись stage: {Id, StageType, SequenceId, StageData}.
//
// Используется при сохранении агрегата и в ответах API.
type Record struct {
	ID         uuid.UUID
	StageType  domain.StageType
	SequenceID int
	Data       domain.StageData
}

// RecordFromStage строит Record из доменного stage.
func RecordFromStage(s *domain.Stage) Record {
	return Record{
		ID:         s.ID,
		StageType:  s.Type,
		SequenceID: s.SequenceID,
		Data:       s.Data,
	}
}

// ToStage конвертирует Record в доменный stage.
func (r Record) ToStage() domain.Stage {
	return domain.Stage{
		ID:         r.ID,
		Type:       r.StageType,
		SequenceID: r.SequenceID,
		Data:       r.Data,
	}
}

// MarshalJSON реализует json.Marshaler.
// Поля пишутся в фиксированном порядке: Id, StageType, SequenceId, StageData.
func (r Record) MarshalJSON() ([]byte, error) {
	return encodeFields(
		field{fieldID, r.ID},
		field{fieldStageType, r.StageType},
		field{fieldSequenceID, r.SequenceID},
		field{fieldStageData, r.Data},
	)
}

// UnmarshalJSON реализует json.Unmarshaler.
func (r *Record) UnmarshalJSON(data []byte) error {
	fields, err := decodeObject(data)
	if err != nil {
		return err
	}
	if err := requireFields(fields, fieldID, fieldSequenceID, fieldStageType, fieldStageData); err != nil {
		return err
	}
	if err := json.Unmarshal(fields[fieldID], &r.ID); err != nil {
		return fmt.Errorf("decode %s: %w", fieldID, err)
	}
	if err := json.Unmarshal(fields[fieldSequenceID], &r.SequenceID); err != nil {
		return fmt.Errorf("decode %s: %w", fieldSequenceID, err)
	}
	r.StageType, r.Data, err = decodeTypeAndData(fields)
	return err
}

// CreationRequest — wire-запрос на создание stage: {StageType, SequenceId, StageData}.
// Id отсутствует — его назначает сервер.
type CreationRequest struct {
	StageType  domain.StageType
	SequenceID int
	Data       domain.StageData
}

// ToStage конвертирует запрос в доменный stage со свежим ID.
func (r CreationRequest) ToStage() domain.Stage {
	return domain.Stage{
		ID:         uuid.New(),
		Type:       r.StageType,
		SequenceID: r.SequenceID,
		Data:       r.Data,
	}
}

// MarshalJSON реализует json.Marshaler.
// Поля пишутся в фиксированном порядке: StageType, SequenceId, StageData.
func (r CreationRequest) MarshalJSON() ([]byte, error) {
	return encodeFields(
		field{fieldStageType, r.StageType},
		field{fieldSequenceID, r.SequenceID},
		field{fieldStageData, r.Data},
	)
}

// UnmarshalJSON реализует json.Unmarshaler.
func (r *CreationRequest) UnmarshalJSON(data []byte) error {
	fields, err := decodeObject(data)
	if err != nil {
		return err
	}
	if err := requireFields(fields, fieldSequenceID, fieldStageType, fieldStageData); err != nil {
		return err
	}
	if err := json.Unmarshal(fields[fieldSequenceID], &r.SequenceID); err != nil {
		return fmt.Errorf("decode %s: %w", fieldSequenceID, err)
	}
	r.StageType, r.Data, err = decodeTypeAndData(fields)
	return err
}

// OrchestratorCreationRequest — wire-запрос постановки stage для
// внешнего оркестратора: {StageType, SequenceId, StageId, StageData}.
// StageId — уже назначенный идентификатор stage, по которому оркестратор
// будет присылать callbacks.
type OrchestratorCreationRequest struct {
	StageType  domain.StageType
	SequenceID int
	StageID    uuid.UUID
	Data       domain.StageData
}

// OrchestratorRequestFromStage строит запрос оркестратора из доменного stage.
func OrchestratorRequestFromStage(s *domain.Stage) OrchestratorCreationRequest {
	return OrchestratorCreationRequest{
		StageType:  s.Type,
		SequenceID: s.SequenceID,
		StageID:    s.ID,
		Data:       s.Data,
	}
}

// MarshalJSON реализует json.Marshaler.
// Поля пишутся в фиксированном порядке: StageType, SequenceId, StageId, StageData.
func (r OrchestratorCreationRequest) MarshalJSON() ([]byte, error) {
	return encodeFields(
		field{fieldStageType, r.StageType},
		field{fieldSequenceID, r.SequenceID},
		field{fieldStageID, r.StageID},
		field{fieldStageData, r.Data},
	)
}

// UnmarshalJSON реализует json.Unmarshaler.
func (r *OrchestratorCreationRequest) UnmarshalJSON(data []byte) error {
	fields, err := decodeObject(data)
	if err != nil {
		return err
	}
	if err := requireFields(fields, fieldSequenceID, fieldStageID, fieldStageType, fieldStageData); err != nil {
		return err
	}
	if err := json.Unmarshal(fields[fieldSequenceID], &r.SequenceID); err != nil {
		return fmt.Errorf("decode %s: %w", fieldSequenceID, err)
	}
	if err := json.Unmarshal(fields[fieldStageID], &r.StageID); err != nil {
		return fmt.Errorf("decode %s: %w", fieldStageID, err)
	}
	r.StageType, r.Data, err = decodeTypeAndData(fields)
	return err
}

// --- Shared helpers ---

// field — пара имя/значение для упорядоченной записи объекта.
type field struct {
	name  string
	value any
}

// encodeFields пишет JSON-объект с полями в заданном порядке.
// StageType валидируется до записи: неизвестное значение — ошибка,
// молчаливый пропуск или значение по умолчанию недопустимы.
func encodeFields(fields ...field) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		if t, ok := f.value.(domain.StageType); ok && !t.IsValid() {
			return nil, fmt.Errorf("%w: %d", ErrUnknownStageType, int(t))
		}
		name, err := json.Marshal(f.name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(f.value)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", f.name, err)
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// decodeObject требует, чтобы вход начинался с открывающей скобки объекта,
// и возвращает поля объекта. Порядок полей на входе не важен.
func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, ErrNotStartOfObject
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, ErrNotStartOfObject
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// requireFields проверяет наличие обязательных полей.
// names перечислены в порядке приоритета: при нескольких отсутствующих
// полях сообщается первое.
func requireFields(fields map[string]json.RawMessage, names ...string) error {
	for _, name := range names {
		raw, ok := fields[name]
		if !ok || string(raw) == "null" {
			return &MissingFieldError{Field: name}
		}
	}
	return nil
}

// decodeTypeAndData извлекает StageType и декодирует StageData
// в соответствующий вариант объединения.
func decodeTypeAndData(fields map[string]json.RawMessage) (domain.StageType, domain.StageData, error) {
	var stageType domain.StageType
	rawType := fields[fieldStageType]
	if err := json.Unmarshal(rawType, &stageType); err != nil {
		return 0, nil, fmt.Errorf("%w: %s", ErrUnknownStageType, bytes.TrimSpace(rawType))
	}

	data, err := decodeStageData(stageType, fields[fieldStageData])
	if err != nil {
		return 0, nil, err
	}
	return stageType, data, nil
}

// decodeStageData декодирует StageData в вариант, выбранный дискриминатором.
// Единственное место диспетчеризации по StageType при чтении.
func decodeStageData(stageType domain.StageType, raw json.RawMessage) (domain.StageData, error) {
	switch stageType {
	case domain.StageTypeClass:
		var data domain.ClassData
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("decode %s: %w", fieldStageData, err)
		}
		return &data, nil
	case domain.StageTypeOlb:
		var data domain.OlbData
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("decode %s: %w", fieldStageData, err)
		}
		return &data, nil
	case domain.StageTypePpv:
		var data domain.PpvData
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("decode %s: %w", fieldStageData, err)
		}
		return &data, nil
	case domain.StageTypeMaestro:
		var data domain.MaestroData
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("decode %s: %w", fieldStageData, err)
		}
		return &data, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownStageType, int(stageType))
	}
}
