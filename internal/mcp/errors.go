// Package mcp implements the Model Context Protocol tool surface for
// Forest: capture/read/search/edge/tag/import/synthesize/admin operations
// over the graph core, registered as typed-input/typed-output tools on a
// github.com/modelcontextprotocol/go-sdk server.
package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/foresthq/forest/internal/ferrors"
)

// Standard JSON-RPC error codes.
const (
	ErrCodeInvalidParams  = -32602
	ErrCodeMethodNotFound = -32601
	ErrCodeInternalError  = -32603
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts a ForestError (or any error) to an MCPError: a
// structured core error maps to an MCP code by category, everything else
// becomes a generic internal error.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var fe *ferrors.ForestError
	if errors.As(err, &fe) {
		return mapForestError(fe)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &MCPError{Code: ErrCodeInternalError, Message: "request canceled or timed out"}
	}
	return &MCPError{Code: ErrCodeInternalError, Message: "internal server error"}
}

func mapForestError(fe *ferrors.ForestError) *MCPError {
	switch fe.Category {
	case ferrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: fe.Message}
	case ferrors.CategoryStorage:
		switch fe.Code {
		case ferrors.ErrCodeNotFound:
			return &MCPError{Code: ErrCodeMethodNotFound, Message: fe.Message}
		case ferrors.ErrCodeAmbiguous:
			return &MCPError{Code: ErrCodeInvalidParams, Message: fmt.Sprintf("%s (candidates: %v)", fe.Message, fe.Matches)}
		default:
			return &MCPError{Code: ErrCodeInternalError, Message: fe.Message}
		}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: fe.Message}
	}
}

// NewInvalidParamsError creates an invalid-parameters error with a custom
// message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}
