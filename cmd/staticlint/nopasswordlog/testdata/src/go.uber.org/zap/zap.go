package zap

type Field struct{}

func String(key, value string) Field { return Field{} }

func Error(err error) Field { return Field{} }

type Logger struct{}

func (l *Logger) Info(msg string, fields ...Field) {}

type SugaredLogger struct{}

func (s *SugaredLogger) Infow(msg string, keysAndValues ...interface{}) {}

func (s *SugaredLogger) Errorw(msg string, keysAndValues ...interface{}) {}
