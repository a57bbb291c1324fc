// Package lifecycle управляет жизненным циклом экспериментов.
//
// Engine отвечает за:
//   - Разрешение correlation id тестера (condition или не-Class stage)
//   - Одиночные смены статуса с побочными эффектами
//   - Запись результатов conditions
//   - Bulk-операции Cancel / Delete / Resume / Re-state
//   - Пересылку прогресса downstream-уведомителю
//
// Планировщика в процессе нет: state machine вычисляется синхронно
// на каждый запрос. Конкурентная безопасность делегирована хранилищу —
// Engine читает агрегат целиком, мутирует в памяти и пишет назад целиком.
package lifecycle
