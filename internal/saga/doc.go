// Package saga реализует двухфазный create-then-submit поток:
// запись агрегата в хранилище, постановка в очередь и компенсирующий
// откат при отказе очереди.
//
// Фаза saga — явная state machine, а не побочный error path:
// "компенсация не удалась" (INCONSISTENT) — первоклассный,
// тестируемый исход.
package saga
