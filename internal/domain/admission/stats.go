package admission

import (
	"context"
	"time"
)

// Transition es un hito del ciclo de vida de un request (opened, accepted, ...).
type Transition struct {
	Kind    string
	Outcome string
	At      time.Time
}

// StatsRecorder persiste contadores de transiciones fuera del proceso.
// Es best-effort: un error se loguea y no afecta la operación.
type StatsRecorder interface {
	Record(ctx context.Context, t Transition) error
}

// StatsReader expone los totales acumulados (GET /stats).
type StatsReader interface {
	Totals(ctx context.Context) (map[string]int64, error)
}
