// Package sl содержит вспомогательные функции для работы с логгером slog.
// Единственная задача пакета — единообразное формирование структурированных
// полей лога, в первую очередь для ошибок.
package sl

import "log/slog"

// Err возвращает slog.Attr с ключом "error" и текстом ошибки.
//
// Пример:
//
//	log.Error("failed to persist report", sl.Err(err))
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}
