// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go          — Handler с DI (репозиторий, engine, saga, logger)
//   - routes.go           — регистрация маршрутов
//   - middleware.go       — middleware (logging, recovery)
//   - response.go         — унифицированные JSON-ответы и обработка ошибок
//   - dto.go              — Data Transfer Objects (request/response)
//   - group_handler.go    — обработчики для /groups
//   - callback_handler.go — обработчики для /callbacks
//
// API предоставляет REST endpoints для управления группами экспериментов
// и принимает callbacks от тестера и внешнего оркестратора.
package api
