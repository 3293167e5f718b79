package ports

// Observability bundles logging and metrics behind one port so relay
// and client code stay backend-agnostic.
type Observability interface {
	LogInfo(msg string, fields ...Field)
	LogError(msg string, err error, fields ...Field)

	IncCounter(name string, v float64)
	SetGauge(name string, v float64)
}

type Field struct {
	Key   string
	Value any
}
