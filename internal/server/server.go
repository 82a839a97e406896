// Package server exposes the session manager over gRPC. Failures that belong
// to the notebook domain (unknown session, rejected cell, bad widget value)
// travel inside the response envelope with success=false; gRPC status errors
// are reserved for transport-level problems.
package server

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"cellexec/api/execrpc"
	"cellexec/internal/output"
	"cellexec/internal/session"
)

// Server implements execrpc.CellExecutorServer over the session registry.
type Server struct {
	manager *session.Manager
	logger  *zap.Logger
}

// New builds the RPC surface over a manager.
func New(manager *session.Manager, logger *zap.Logger) *Server {
	return &Server{manager: manager, logger: logger}
}

// StartSession creates a session from a notebook in the object store.
func (s *Server) StartSession(ctx context.Context, req *execrpc.StartSessionRequest) (*execrpc.StartSessionResponse, error) {
	if req.NotebookPath == "" {
		return &execrpc.StartSessionResponse{Error: "notebook_path is required"}, nil
	}

	_, err := s.manager.Start(ctx, req.SessionID, req.NotebookPath, req.ComponentID)
	if err != nil {
		s.logger.Warn("session start failed",
			zap.String("session_id", req.SessionID),
			zap.String("notebook", req.NotebookPath),
			zap.Error(err))
		return &execrpc.StartSessionResponse{Error: err.Error()}, nil
	}
	return &execrpc.StartSessionResponse{Success: true}, nil
}

// ExecuteCell runs one cell in a session.
func (s *Server) ExecuteCell(ctx context.Context, req *execrpc.ExecuteCellRequest) (*execrpc.ExecuteCellResponse, error) {
	sess, err := s.manager.Get(req.SessionID)
	if err != nil {
		return &execrpc.ExecuteCellResponse{Error: "Session not found"}, nil
	}

	res := sess.ExecuteCell(req.CellID, req.Code)
	return &execrpc.ExecuteCellResponse{
		Success:   res.Success,
		Error:     res.Err,
		Outputs:   convertOutputs(res.Outputs),
		CellState: res.CellState,
	}, nil
}

// EndSession tears down a session.
func (s *Server) EndSession(ctx context.Context, req *execrpc.EndSessionRequest) (*execrpc.EndSessionResponse, error) {
	if err := s.manager.End(req.SessionID); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return &execrpc.EndSessionResponse{Error: "Session not found"}, nil
		}
		return &execrpc.EndSessionResponse{Error: err.Error()}, nil
	}
	return &execrpc.EndSessionResponse{Success: true}, nil
}

// GetSessionState returns the binding and widget snapshot of a session.
func (s *Server) GetSessionState(ctx context.Context, req *execrpc.GetSessionStateRequest) (*execrpc.GetSessionStateResponse, error) {
	sess, err := s.manager.Get(req.SessionID)
	if err != nil {
		return &execrpc.GetSessionStateResponse{Exists: false}, nil
	}

	bindings, widgets := sess.State()
	return &execrpc.GetSessionStateResponse{
		Exists:  true,
		State:   bindings,
		Widgets: widgets,
	}, nil
}

// UpdateWidgetValue applies a client-side widget value change.
func (s *Server) UpdateWidgetValue(ctx context.Context, req *execrpc.UpdateWidgetValueRequest) (*execrpc.UpdateWidgetValueResponse, error) {
	sess, err := s.manager.Get(req.SessionID)
	if err != nil {
		return &execrpc.UpdateWidgetValueResponse{Error: "Session not found"}, nil
	}

	if err := sess.UpdateWidgetValue(req.WidgetID, req.Value); err != nil {
		return &execrpc.UpdateWidgetValueResponse{Error: err.Error()}, nil
	}
	return &execrpc.UpdateWidgetValueResponse{Success: true}, nil
}

func convertOutputs(outs []output.Output) []execrpc.Output {
	if len(outs) == 0 {
		return nil
	}
	wire := make([]execrpc.Output, len(outs))
	for i, o := range outs {
		wire[i] = execrpc.Output{
			Kind:     execrpc.OutputKind(o.Kind),
			Content:  o.Content,
			Data:     o.Data,
			MimeType: o.MimeType,
			Metadata: o.Metadata,
			DataType: execrpc.DataType(o.DataType),
		}
	}
	return wire
}
