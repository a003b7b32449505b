package log

import "log/slog"

func RunID[T ~string](id T) slog.Attr {
	return slog.String("run_id", string(id))
}

func Executable[T ~string](name T) slog.Attr {
	return slog.String("executable", string(name))
}

func Task[T ~string](name T) slog.Attr {
	return slog.String("task", string(name))
}

func StepID[T ~int64](id T) slog.Attr {
	return slog.Int64("step_id", int64(id))
}

func Result[T ~string](result T) slog.Attr {
	return slog.String("result", string(result))
}

func Status[T ~string](status T) slog.Attr {
	return slog.String("status", string(status))
}

func Error(err error) slog.Attr {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return slog.String("error", msg)
}

func ErrorString(msg string) slog.Attr {
	return slog.String("error", msg)
}
