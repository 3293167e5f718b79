package observability

import (
	"fmt"
	"log"
	"strings"

	"github.com/busbeacon/beacon/internal/ports"
)

// LogObs is a metrics-free Observability backend writing to the
// standard logger. It is the default for embedded client use, where
// pulling in a Prometheus registry is unwanted.
type LogObs struct{}

func NewLogObs() *LogObs { return &LogObs{} }

func (*LogObs) LogInfo(msg string, fields ...ports.Field) {
	log.Printf("INFO: %s%s", msg, formatFields(fields))
}

func (*LogObs) LogError(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("ERROR: %s: %v%s", msg, err, formatFields(fields))
	}
}

func (*LogObs) IncCounter(name string, v float64) {}
func (*LogObs) SetGauge(name string, v float64)   {}

func formatFields(fields []ports.Field) string {
	if len(fields) == 0 {
		return ""
	}
	var b strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	return b.String()
}

var _ ports.Observability = (*LogObs)(nil)
