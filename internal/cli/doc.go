// Package cli реализует инструмент командной строки Waferline.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с Waferline API.
// Работает через HTTP, не импортирует внутренние пакеты системы.
// CLI используется для управления группами экспериментов и ручной
// отправки callbacks при отладке.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Waferline API. Инкапсулирует все HTTP-запросы,
// парсинг ответов (DataResponse, ErrorResponse) и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	group, err := client.GetGroup(id)
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: waferline group show ID --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - group: create, show, add, cancel, delete, resume, state
//   - callback: status, result, progress
//
// Каждая группа создаётся через фабричную функцию (NewGroupCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
