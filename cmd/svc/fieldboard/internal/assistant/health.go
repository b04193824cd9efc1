package assistant

import (
	"context"

	"github.com/tecnotop/backend/libs/errors"
)

// IntegrityReport is the combined health probe covering both external
// dependencies of the assistant.
type IntegrityReport struct {
	OpenAI   string `json:"openai"`
	Database string `json:"banco"`
	Year     int    `json:"ano_atual"`
	Month    int    `json:"mes_atual"`
}

// PingAI checks that the completions API answers.
func (a *Assistant) PingAI(ctx context.Context) error {
	return errors.Trace(a.ai.Ping(ctx))
}

// PingDB checks database connectivity.
func (a *Assistant) PingDB(ctx context.Context) error {
	return errors.Trace(a.db.Ping(ctx))
}

// Integrity runs both probes and reports the outcome of each.
func (a *Assistant) Integrity(ctx context.Context) *IntegrityReport {
	now := a.clk.Now()
	r := &IntegrityReport{
		OpenAI:   "ok",
		Database: "ok",
		Year:     now.Year(),
		Month:    int(now.Month()),
	}
	if err := a.PingAI(ctx); err != nil {
		r.OpenAI = err.Error()
	}
	if err := a.PingDB(ctx); err != nil {
		r.Database = err.Error()
	}
	return r
}
