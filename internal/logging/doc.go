// Package logging builds the slog loggers cbzmage runs with.
//
// The console handler prints a header per record (time, level, component,
// book file name, message) and a short list of the fields that matter for a
// conversion: page counts, cover source, archive size, hints. With
// paths.log_dir set, every run also writes a JSON log named after its start
// time, and run logs older than logging.retention_days are pruned by that
// name.
//
// Book, Mode, HDContainer and ArchiveBytes build the attributes the console
// formats specially; WarnWithContext and ErrorWithContext make sure warnings
// carry an event type, a hint and an impact.
package logging
