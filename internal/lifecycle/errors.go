package lifecycle

import "errors"

// Таксономия ошибок lifecycle-операций.
//
// Каждая операция возвращает обёрнутую sentinel-ошибку; транспортный
// слой различает их через errors.Is. Автоматических retry нет.
var (
	// ErrNotFound — сущность или агрегат не найдены.
	ErrNotFound = errors.New("not found")

	// ErrValidation — переход отклонён policy, несовпадение id
	// в bulk-запросе или отсутствие эффективных изменений.
	ErrValidation = errors.New("validation failed")

	// ErrRepository — сбой чтения/записи хранилища,
	// либо неразрешённый сбой компенсации saga.
	ErrRepository = errors.New("repository error")

	// ErrQueue — очередь отклонила постановку, хранилище
	// консистентно (компенсация удалась).
	ErrQueue = errors.New("queue submission failed")

	// ErrExternalServer — сбой downstream-уведомления
	// после успешной записи в хранилище.
	ErrExternalServer = errors.New("external server error")

	// ErrBadRequest — структурно пустой запрос.
	ErrBadRequest = errors.New("bad request")
)
