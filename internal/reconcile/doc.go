// Package reconcile реализует фоновую сверку групп с очередью.
//
// Reconciler периодически находит группы, записанные в хранилище,
// но не дошедшие до оркестратора (submitted_to_queue = false),
// и досылает их.
//
// Структура:
//   - reconciler.go — основная логика (Run, Sweep, resubmit)
//   - cron.go       — парсинг cron-выражений расписания
//
// Использование:
//
//	rec := reconcile.New(reconcile.Config{
//	    Repo:      groupRepo,
//	    Submitter: publisher,
//	    Logger:    logger,
//	})
//
//	// Блокируется до отмены контекста
//	if err := rec.Run(ctx, "*/5 * * * *"); err != nil {
//	    logger.Error("reconciler stopped", "error", err)
//	}
//
// Leader Election:
//
// Reconciler не реализует leader election самостоятельно.
// Это делается в main.go через pg_try_advisory_lock.
package reconcile
