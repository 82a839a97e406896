package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"cellexec/internal/config"
	"cellexec/internal/interp"
	"cellexec/internal/output"
	"cellexec/internal/security"
	"cellexec/internal/tracker"
	"cellexec/internal/widget"
	"cellexec/pkg/charts"
	"cellexec/pkg/nbsdk"
)

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	cfg := config.DefaultConfig()

	handle := nbsdk.NewHandle(t.TempDir())
	figures := charts.NewRegistry(cfg.Output.PlotWidth, cfg.Output.PlotHeight)
	it, err := interp.New(cfg.Security.AllowedImports, interp.SDKExports(handle, figures))
	require.NoError(t, err)
	require.NoError(t, it.Bootstrap())

	ns := interp.NewNamespace(it)
	ns.Refresh()

	tr := tracker.New(
		[]string{"nb"},
		[]string{"nbsdk", "ui", "charts", "frames", "fmt", "time", "encoding", "errors"},
	)

	return New(
		security.NewValidator(cfg.Security),
		output.NewMarshaller(cfg.Output),
		it, ns, tr,
		widget.NewRegistry(),
		figures,
		zaptest.NewLogger(t),
	)
}

func outputsOfKind(outs []output.Output, kind output.Kind) []output.Output {
	var got []output.Output
	for _, o := range outs {
		if o.Kind == kind {
			got = append(got, o)
		}
	}
	return got
}

func TestExecute_BindingVisibleInState(t *testing.T) {
	e := newTestExecutor(t)

	res := e.Execute("c1", "x := 42")
	require.True(t, res.Success, res.Err)
	assert.Equal(t, "42", res.CellState["x"])
	assert.NotContains(t, res.CellState, "nb", "protected root never displayed")
}

func TestExecute_ExpressionResultText(t *testing.T) {
	e := newTestExecutor(t)

	res := e.Execute("c1", "1+2")
	require.True(t, res.Success, res.Err)
	results := outputsOfKind(res.Outputs, output.ExpressionResult)
	require.Len(t, results, 1)
	assert.Equal(t, "3", results[0].Content)
	assert.Equal(t, "text/plain", results[0].MimeType)
	assert.Equal(t, output.TextData, results[0].DataType)
}

func TestExecute_ExpressionResultJSON(t *testing.T) {
	e := newTestExecutor(t)

	res := e.Execute("c1", "[]interface{}{1, 2, 3}")
	require.True(t, res.Success, res.Err)
	results := outputsOfKind(res.Outputs, output.ExpressionResult)
	require.Len(t, results, 1)
	assert.Equal(t, "application/json", results[0].MimeType)
	assert.Equal(t, "[\n  1,\n  2,\n  3\n]", results[0].Content)
}

func TestExecute_StdoutCaptured(t *testing.T) {
	e := newTestExecutor(t)

	res := e.Execute("c1", "import \"fmt\"\nfmt.Println(\"hello\")")
	require.True(t, res.Success, res.Err)
	stdout := outputsOfKind(res.Outputs, output.Stdout)
	require.Len(t, stdout, 1)
	assert.Equal(t, "hello\n", stdout[0].Content)
	assert.Equal(t, stdout[0], res.Outputs[0], "stdout comes first")
}

func TestExecute_SecurityRejection(t *testing.T) {
	e := newTestExecutor(t)

	res := e.Execute("c1", "import \"os\"\nos.Getpid()")
	assert.False(t, res.Success)
	require.Len(t, res.Outputs, 1)
	assert.Equal(t, output.Error, res.Outputs[0].Kind)
	assert.Contains(t, res.Outputs[0].Content, "disallowed import")
	assert.Empty(t, res.CellState, "no namespace change on rejection")
}

func TestExecute_RuntimeError(t *testing.T) {
	e := newTestExecutor(t)

	res := e.Execute("c1", "var m map[string]int\nm[\"k\"] = 1")
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Err)
	errs := outputsOfKind(res.Outputs, output.Error)
	require.Len(t, errs, 1)
}

func TestExecute_EmptyCell(t *testing.T) {
	e := newTestExecutor(t)

	res := e.Execute("c1", "   \n// just a comment\n")
	assert.True(t, res.Success)
	assert.Empty(t, res.Outputs)
}

func TestExecute_EmptyRerunRetractsBindings(t *testing.T) {
	e := newTestExecutor(t)

	res := e.Execute("c1", "x := 42")
	require.True(t, res.Success, res.Err)
	require.Contains(t, res.CellState, "x")

	// Clearing the cell's source retracts its bindings like any other rerun.
	res = e.Execute("c1", "   \n")
	require.True(t, res.Success, res.Err)
	assert.NotContains(t, res.CellState, "x")
}

func TestExecute_RerunWithImports(t *testing.T) {
	e := newTestExecutor(t)
	src := "import \"strings\"\ns := strings.ToUpper(\"hi\")"

	require.True(t, e.Execute("c1", src).Success)
	res := e.Execute("c1", src)
	require.True(t, res.Success, res.Err)
	assert.Equal(t, "HI", res.CellState["s"])
}

func TestExecute_DeclarationCellRerun(t *testing.T) {
	e := newTestExecutor(t)
	src := "import \"strings\"\nvar greeting = strings.ToUpper(\"hello\")"

	require.True(t, e.Execute("c1", src).Success)
	res := e.Execute("c1", src)
	require.True(t, res.Success, res.Err)
	assert.Equal(t, "HELLO", res.CellState["greeting"])
}

func TestExecute_ReexecutionIdempotent(t *testing.T) {
	e := newTestExecutor(t)

	first := e.Execute("c1", "x := 42\ny := x * 2")
	require.True(t, first.Success, first.Err)
	second := e.Execute("c1", "x := 42\ny := x * 2")
	require.True(t, second.Success, second.Err)

	assert.Equal(t, first.CellState, second.CellState)
}

func TestExecute_StaleBindingRetracted(t *testing.T) {
	e := newTestExecutor(t)

	res := e.Execute("c1", "a := 1\nb := 2")
	require.True(t, res.Success, res.Err)
	require.Contains(t, res.CellState, "b")

	res = e.Execute("c1", "a := 1")
	require.True(t, res.Success, res.Err)
	assert.Contains(t, res.CellState, "a")
	assert.NotContains(t, res.CellState, "b", "binding from the previous version must not survive")
}

func TestExecute_CrossCellPreservation(t *testing.T) {
	e := newTestExecutor(t)

	require.True(t, e.Execute("c1", "y := 10").Success)
	require.True(t, e.Execute("c2", "z := y + 1").Success)

	res := e.Execute("c1", "y := 10")
	require.True(t, res.Success, res.Err)
	assert.Equal(t, "11", res.CellState["z"], "another cell's dependent binding survives")
}

func TestExecute_WidgetIDStableAcrossReruns(t *testing.T) {
	e := newTestExecutor(t)
	src := "import \"ui\"\nui.Slider(0, 100, 1)"

	first := e.Execute("w1", src)
	require.True(t, first.Success, first.Err)
	firstWidgets := outputsOfKind(first.Outputs, output.Widget)
	require.Len(t, firstWidgets, 1)

	second := e.Execute("w1", src)
	require.True(t, second.Success, second.Err)
	secondWidgets := outputsOfKind(second.Outputs, output.Widget)
	require.Len(t, secondWidgets, 1)

	assert.Equal(t,
		firstWidgets[0].Metadata["widget_id"],
		secondWidgets[0].Metadata["widget_id"])
}

func TestExecute_WidgetSweepFindsUnboundConstructors(t *testing.T) {
	e := newTestExecutor(t)

	res := e.Execute("c1", "import \"ui\"\nui.Checkbox(\"on?\")\nx := 1")
	require.True(t, res.Success, res.Err)
	widgets := outputsOfKind(res.Outputs, output.Widget)
	require.Len(t, widgets, 1)
	assert.Contains(t, widgets[0].Content, "checkbox")
}

func TestExecute_WidgetResultNotDuplicatedBySweep(t *testing.T) {
	e := newTestExecutor(t)

	res := e.Execute("c1", "import \"ui\"\nui.Slider(0, 10, 1)")
	require.True(t, res.Success, res.Err)
	assert.Len(t, outputsOfKind(res.Outputs, output.Widget), 1)
}

func TestExecute_UnreturnedFigureEmittedOnce(t *testing.T) {
	e := newTestExecutor(t)
	src := "import \"charts\"\nf := charts.New().Line([]float64{0, 1}, []float64{1, 0})\nx := 1"

	res := e.Execute("c1", src)
	require.True(t, res.Success, res.Err)
	assert.Len(t, outputsOfKind(res.Outputs, output.Plot), 1)

	// The figure was closed after capture; a no-plot cell emits nothing.
	res = e.Execute("c2", "x := 2")
	require.True(t, res.Success, res.Err)
	assert.Empty(t, outputsOfKind(res.Outputs, output.Plot))
}

func TestExecute_FigureResultNotDuplicatedByScan(t *testing.T) {
	e := newTestExecutor(t)
	src := "import \"charts\"\ncharts.New().Line([]float64{0, 1}, []float64{1, 0})"

	res := e.Execute("c1", src)
	require.True(t, res.Success, res.Err)

	results := outputsOfKind(res.Outputs, output.ExpressionResult)
	require.Len(t, results, 1)
	assert.Equal(t, "image/png", results[0].MimeType)
	assert.Empty(t, outputsOfKind(res.Outputs, output.Plot), "no duplicate between result and scan")
}

func TestExecute_InitializationOverride(t *testing.T) {
	e := newTestExecutor(t)

	require.True(t, e.Execute(tracker.InitializationCell, "x := 1").Success)
	res := e.Execute("c1", "x := 2")
	require.True(t, res.Success, res.Err)
	assert.Equal(t, "2", res.CellState["x"])
}

func TestCellState_NotSerializableSentinel(t *testing.T) {
	e := newTestExecutor(t)

	res := e.Execute("c1", "f := func() int { return 1 }")
	require.True(t, res.Success, res.Err)
	assert.Equal(t, "Not Serializable", res.CellState["f"])
}
