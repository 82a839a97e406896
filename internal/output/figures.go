package output

import (
	"fmt"

	"cellexec/pkg/charts"
)

// FigureScan emits one PLOT output per open figure in the session's figure
// registry and closes each after rendering, bounding memory. The figure the
// cell already returned as its expression result is skipped (the executor
// closes it separately), so exactly one output exists per figure.
func (m *Marshaller) FigureScan(reg *charts.Registry, cell *CellContext) []Output {
	var outs []Output
	for _, f := range reg.Open() {
		if cell != nil && cell.EmittedFigure == f {
			continue
		}
		if !f.HasContent() {
			f.Close()
			continue
		}
		out, err := m.renderFigure(Plot, f)
		if err != nil {
			outs = append(outs, Warningf(fmt.Sprintf("failed to render figure: %v", err)))
		} else {
			outs = append(outs, out)
		}
		f.Close()
	}
	return outs
}
