// Package output converts native cell execution results into the typed
// records the wire contract carries. The marshaller is a capability ladder:
// each rung checks for an interface the value may satisfy and the first
// match wins, so recognisers never string-match on type names.
package output

// Kind tags what an output record carries.
type Kind string

const (
	Stdout           Kind = "STDOUT"
	Stderr           Kind = "STDERR"
	ExpressionResult Kind = "EXPRESSION_RESULT"
	Error            Kind = "ERROR"
	HTML             Kind = "HTML"
	Plot             Kind = "PLOT"
	Widget           Kind = "WIDGET"
	Warning          Kind = "WARNING"
)

// DataType tags how clients should decode Content/Data.
type DataType string

const (
	TextData   DataType = "TEXT_DATA"
	HTMLData   DataType = "HTML_DATA"
	JSONData   DataType = "JSON_DATA"
	ImageData  DataType = "IMAGE_DATA"
	WidgetData DataType = "WIDGET_DATA"
)

// Output is one typed record produced by a cell execution. Outputs are
// transient: they belong to the caller of ExecuteCell and are never stored.
type Output struct {
	Kind     Kind
	Content  string
	Data     []byte
	MimeType string
	Metadata map[string]string
	DataType DataType
}

// Text builds a plain-text output of the given kind.
func Text(kind Kind, content string) Output {
	return Output{Kind: kind, Content: content, MimeType: "text/plain", DataType: TextData}
}

// Errorf builds an ERROR output.
func Errorf(content string) Output {
	return Text(Error, content)
}

// Warningf builds a WARNING output.
func Warningf(content string) Output {
	return Text(Warning, content)
}
