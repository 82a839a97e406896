// Package executor orchestrates one cell execution: validate, retract the
// cell's prior state, evaluate, marshal outputs, and re-attribute state.
// Execution is not a pure function; every cell mutates the session
// namespace, so the executor brackets the evaluation with tracker
// bookkeeping on both the success and failure paths.
package executor

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"time"

	"go.uber.org/zap"

	"cellexec/internal/cellparse"
	"cellexec/internal/interp"
	"cellexec/internal/output"
	"cellexec/internal/security"
	"cellexec/internal/tracker"
	"cellexec/internal/widget"
	"cellexec/pkg/charts"
)

// Result is the outcome of one cell execution.
type Result struct {
	Success bool
	Outputs []output.Output
	Err     string
	// CellState maps public non-protected binding names to their text
	// representation, for client display.
	CellState map[string]string
}

// Executor runs cells against one session's interpreter and trackers. It is
// not internally locked; the owning session serialises executions.
type Executor struct {
	validator  *security.Validator
	marshaller *output.Marshaller
	it         *interp.Interp
	ns         *interp.Namespace
	tracker    *tracker.Tracker
	widgets    *widget.Registry
	figures    *charts.Registry
	logger     *zap.Logger
}

// New wires an executor over a session's components.
func New(v *security.Validator, m *output.Marshaller, it *interp.Interp, ns *interp.Namespace,
	tr *tracker.Tracker, widgets *widget.Registry, figures *charts.Registry, logger *zap.Logger) *Executor {
	return &Executor{
		validator:  v,
		marshaller: m,
		it:         it,
		ns:         ns,
		tracker:    tr,
		widgets:    widgets,
		figures:    figures,
		logger:     logger,
	}
}

// Execute runs one cell.
func (e *Executor) Execute(cellID, source string) Result {
	start := time.Now()

	analysis, err := e.validator.Validate(source)
	if err != nil {
		e.logger.Info("cell rejected",
			zap.String("cell_id", cellID),
			zap.String("reason", err.Error()))
		return Result{
			Success: false,
			Outputs: []output.Output{output.Errorf(err.Error())},
			Err:     err.Error(),
		}
	}

	// Retract this cell's previous effects before the empty shortcut:
	// clearing a cell's source must drop the bindings its last version made.
	e.tracker.CleanupForRerun(cellID, e.ns, e.widgets)

	if analysis.Empty {
		return Result{Success: true, CellState: e.CellState()}
	}

	// Clear any initialization bindings the new source is about to redefine.
	e.tracker.InitConflict(analysis, e.ns)

	before := e.ns.Snapshot()
	e.tracker.SetSnapshot(cellID, before)

	var stdoutBuf, stderrBuf bytes.Buffer
	prevOut := e.it.Stdout().Swap(&stdoutBuf)
	prevErr := e.it.Stderr().Swap(&stderrBuf)
	defer func() {
		e.it.Stdout().Swap(prevOut)
		e.it.Stderr().Swap(prevErr)
	}()

	resultVal, runErr := e.eval(analysis)

	cellCtx := output.NewCellContext(e.widgets)
	var body []output.Output

	if runErr == nil && analysis.TrailingExpr {
		var res any
		if resultVal.IsValid() && resultVal.CanInterface() {
			res = resultVal.Interface()
		}
		body = append(body, e.marshaller.Marshal(res, cellCtx))
	}

	if runErr == nil {
		body = append(body, e.widgetSweep(analysis, cellCtx)...)
	}

	body = append(body, e.marshaller.FigureScan(e.figures, cellCtx)...)
	if cellCtx.EmittedFigure != nil {
		cellCtx.EmittedFigure.Close()
	}

	// Tracking runs on success and on failure; its own errors downgrade to
	// warnings so bookkeeping never fails the user's execution.
	if runErr == nil {
		e.ns.Unhide(analysis.AssignedNames...)
	}
	e.ns.Refresh()
	after := e.ns.Snapshot()
	var warnings []output.Output
	if terr := e.tracker.Track(cellID, before, after, analysis, e.widgets); terr != nil {
		warnings = append(warnings, output.Warningf(fmt.Sprintf("state tracking failed: %v", terr)))
	}

	outs := make([]output.Output, 0, len(body)+3)
	if s := stdoutBuf.String(); s != "" {
		outs = append(outs, output.Text(output.Stdout, s))
	}
	stderrText := stderrBuf.String()
	if runErr == nil && stderrText != "" {
		outs = append(outs, output.Text(output.Stderr, stderrText))
	}
	outs = append(outs, body...)
	outs = append(outs, warnings...)

	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
		content := errMsg
		if stderrText != "" {
			content = stderrText + "\n" + errMsg
		}
		outs = append(outs, output.Errorf(content))
	}

	e.logger.Debug("cell executed",
		zap.String("cell_id", cellID),
		zap.Bool("success", runErr == nil),
		zap.Int("outputs", len(outs)),
		zap.Duration("duration", time.Since(start)))

	return Result{
		Success:   runErr == nil,
		Outputs:   outs,
		Err:       errMsg,
		CellState: e.CellState(),
	}
}

// eval runs the import prelude, then the body. The value of the body's
// final statement is the expression result candidate.
func (e *Executor) eval(analysis *cellparse.Analysis) (reflect.Value, error) {
	if err := e.it.Import(analysis.ImportSpecs); err != nil {
		return reflect.Value{}, err
	}
	if strings.TrimSpace(analysis.Body) == "" {
		return reflect.Value{}, nil
	}
	return e.it.Eval(analysis.Body)
}

// widgetSweep best-effort re-evaluates the cell's standalone widget
// constructor calls so widgets built without being returned still reach the
// client. Content-hash ids make the re-evaluation land on the id the first
// evaluation produced, and ids already emitted this cell are skipped.
func (e *Executor) widgetSweep(analysis *cellparse.Analysis, cellCtx *output.CellContext) []output.Output {
	var outs []output.Output
	for _, call := range analysis.WidgetCalls {
		v, err := e.it.Eval(call)
		if err != nil || !v.IsValid() || !v.CanInterface() {
			continue
		}
		w, ok := v.Interface().(widget.Widget)
		if !ok {
			continue
		}
		if cellCtx.EmittedIDs[e.widgets.Register(w)] {
			continue
		}
		outs = append(outs, e.marshaller.Marshal(w, cellCtx))
	}
	return outs
}

// CellState builds the display snapshot: every public non-protected binding
// rendered as text, with a sentinel for values that cannot be rendered.
func (e *Executor) CellState() map[string]string {
	view := e.ns.Snapshot()
	out := make(map[string]string, len(view))
	for name, val := range view {
		if e.tracker.IsProtected(name) {
			continue
		}
		out[name] = safeRepr(val)
	}
	return out
}

const notSerializable = "Not Serializable"

// safeRepr renders a namespace value as text. Funcs and channels have no
// useful text form, and formatting arbitrary interpreted values can panic.
func safeRepr(v reflect.Value) (s string) {
	defer func() {
		if recover() != nil {
			s = notSerializable
		}
	}()

	if !v.IsValid() {
		return notSerializable
	}
	kind := v.Kind()
	if kind == reflect.Interface && !v.IsNil() {
		kind = v.Elem().Kind()
	}
	switch kind {
	case reflect.Func, reflect.Chan:
		return notSerializable
	}
	if !v.CanInterface() {
		return notSerializable
	}
	return fmt.Sprintf("%v", v.Interface())
}
