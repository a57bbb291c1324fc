// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - submitter.go  — публикация групп экспериментов и событий прогресса
//
// Типы сообщений:
//   - group.submitted      — новая группа передана оркестратору
//   - group.updated        — состав группы изменён
//   - experiment.progress  — эксперимент сменил статус
//
// Exchanges:
//   - waferline.groups      — события групп
//   - waferline.experiments — события экспериментов
//   - waferline.dlq         — dead letter queue
//
// Waferline только публикует: потребители (оркестратор процессов и
// сервис уведомлений) — внешние системы, отвечающие callback'ами в API.
package mq
