// Package execrpc defines the wire contract of the cell execution service:
// request/response messages, the output record, and the gRPC service
// descriptor. Messages travel as JSON frames over gRPC (see codec.go), so
// every field carries a json tag and the types stay plain Go structs.
package execrpc

// OutputKind tags what a cell output carries.
type OutputKind string

const (
	OutputStdout           OutputKind = "STDOUT"
	OutputStderr           OutputKind = "STDERR"
	OutputExpressionResult OutputKind = "EXPRESSION_RESULT"
	OutputError            OutputKind = "ERROR"
	OutputHTML             OutputKind = "HTML"
	OutputPlot             OutputKind = "PLOT"
	OutputWidget           OutputKind = "WIDGET"
	OutputWarning          OutputKind = "WARNING"
)

// DataType tags how Output.Content/Data should be decoded by clients.
type DataType string

const (
	TextData   DataType = "TEXT_DATA"
	HTMLData   DataType = "HTML_DATA"
	JSONData   DataType = "JSON_DATA"
	ImageData  DataType = "IMAGE_DATA"
	WidgetData DataType = "WIDGET_DATA"
)

// Output is one typed record produced by a cell execution.
type Output struct {
	Kind     OutputKind        `json:"type"`
	Content  string            `json:"content,omitempty"`
	Data     []byte            `json:"data,omitempty"`
	MimeType string            `json:"mime_type,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
	DataType DataType          `json:"data_type,omitempty"`
}

type StartSessionRequest struct {
	SessionID    string `json:"session_id"`
	NotebookPath string `json:"notebook_path"`
	ComponentID  string `json:"component_id,omitempty"`
}

type StartSessionResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type ExecuteCellRequest struct {
	SessionID string `json:"session_id"`
	CellID    string `json:"cell_id"`
	Code      string `json:"code"`
}

type ExecuteCellResponse struct {
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Outputs   []Output          `json:"outputs,omitempty"`
	CellState map[string]string `json:"cell_state,omitempty"`
}

type EndSessionRequest struct {
	SessionID string `json:"session_id"`
}

type EndSessionResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type GetSessionStateRequest struct {
	SessionID string `json:"session_id"`
}

type GetSessionStateResponse struct {
	Exists bool              `json:"exists"`
	State  map[string]string `json:"state,omitempty"`
	// Widgets maps widget id to its JSON descriptor.
	Widgets map[string]string `json:"widgets,omitempty"`
}

type UpdateWidgetValueRequest struct {
	SessionID string `json:"session_id"`
	WidgetID  string `json:"widget_id"`
	// Value is the raw client payload: JSON when the client has structure,
	// otherwise a bare string.
	Value string `json:"value"`
}

type UpdateWidgetValueResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
