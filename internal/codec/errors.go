package codec

import "errors"

// Ошибки кодека stage-данных.
//
// Тексты ошибок — часть внешнего контракта: вызывающая сторона
// показывает их пользователю как есть, существующие интеграции
// зависят от точных формулировок.
var (
	// ErrNotStartOfObject — вход не начинается с открывающей скобки объекта.
	ErrNotStartOfObject = errors.New("token type is not start-of-object")

	// ErrUnknownStageType — неизвестное значение StageType.
	ErrUnknownStageType = errors.New("unknown StageType value")
)

// MissingFieldError — отсутствует обязательное поле.
//
// Если отсутствует несколько обязательных полей, сообщается первое
// в фиксированном порядке приоритета: Id → SequenceId → StageId →
// StageType → StageData.
type MissingFieldError struct {
	// Field — имя отсутствующего поля.
	Field string
}

// Error реализует интерфейс error.
func (e *MissingFieldError) Error() string {
	return "Could not get " + e.Field
}
