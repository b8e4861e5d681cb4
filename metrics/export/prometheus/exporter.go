package prometheus

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/MrEthical07/schedauth"
	"github.com/MrEthical07/schedauth/metrics/export/internaldefs"
)

// Source is what the exporter reads. *schedauth.Engine satisfies it.
type Source interface {
	MetricsSnapshot() schedauth.MetricsSnapshot
	AuditDropped() uint64
}

type Exporter struct {
	source Source
}

func New(source Source) *Exporter {
	return &Exporter{source: source}
}

func (p *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write(p.Render())
	})
}

// Render returns the exposition text, or nothing when metrics are off and
// no audit events were dropped.
func (p *Exporter) Render() []byte {
	if p == nil || p.source == nil {
		return nil
	}
	snap := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snap.Counters) == 0 && len(snap.Histograms) == 0 && dropped == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, def := range internaldefs.CounterDefs {
		writeCounter(&buf, def.Name, def.Help, snap.Counters[def.ID])
	}
	for _, def := range internaldefs.HistogramDefs {
		raw, ok := snap.Histograms[def.ID]
		if !ok {
			continue
		}
		writeHistogram(&buf, def.Name, def.Help, internaldefs.Cumulative(raw))
	}
	writeCounter(&buf, internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, dropped)
	return buf.Bytes()
}

var helpEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`)

func writeCounter(buf *bytes.Buffer, name, help string, v uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n# TYPE %s counter\n%s %d\n", name, helpEscaper.Replace(help), name, name, v)
}

func writeHistogram(buf *bytes.Buffer, name, help string, cumulative [8]uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n# TYPE %s histogram\n", name, helpEscaper.Replace(help), name)
	for i, le := range internaldefs.HistogramBounds {
		fmt.Fprintf(buf, "%s_bucket{le=%q} %d\n", name, le, cumulative[i])
	}
	// Observations are bucketed only, so the sum is not tracked.
	fmt.Fprintf(buf, "%s_sum 0\n%s_count %d\n", name, name, cumulative[len(cumulative)-1])
}
