package dice

import "go.uber.org/zap"

// LoggedSource wraps a Source and logs every draw at debug level.
type LoggedSource struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedSource creates a Source that draws from src and logs each value to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedSource(src Source, logger *zap.Logger) *LoggedSource {
	return &LoggedSource{src: src, logger: logger}
}

// Float64 draws from the wrapped source. The log entry is only built when
// debug logging is enabled, so the wrapper is cheap in long runs.
func (l *LoggedSource) Float64() float64 {
	v := l.src.Float64()
	if ce := l.logger.Check(zap.DebugLevel, "random draw"); ce != nil {
		ce.Write(zap.Float64("value", v))
	}
	return v
}
