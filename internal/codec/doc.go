// Package codec кодирует и декодирует вариантные stage-данные.
//
// Stage — tagged union: форма StageData определяется дискриминатором
// StageType. Пакет реализует три независимых wire-формата:
//
//   - Record — полная запись {Id, StageType, SequenceId, StageData}
//   - CreationRequest — запрос создания {StageType, SequenceId, StageData}
//   - OrchestratorCreationRequest — запрос постановки
//     {StageType, SequenceId, StageId, StageData}
//
// Чтение строгое: вход обязан начинаться с объекта, обязательные поля
// проверяются независимо от порядка, отсутствующее поле сообщается
// по фиксированному приоритету, неизвестный StageType — ошибка с
// указанием значения.
package codec
