package model

import (
	"time"

	"github.com/mitchellh/mapstructure"
)

// Tool error codes. Domain failures use <DOMAIN>_NOT_FOUND and <DOMAIN>_ERROR.
const (
	CodeMissingParams     = "MISSING_PARAMS"
	CodeInvalidUUID       = "INVALID_UUID"
	CodeInvalidTenant     = "INVALID_TENANT"
	CodeInvalidParams     = "INVALID_PARAMS"
	CodeUnknownTool       = "UNKNOWN_TOOL"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
)

// Correlation argument names required on every tool call.
const (
	ArgTenantID       = "tenant_id"
	ArgRequestID      = "request_id"
	ArgConversationID = "conversation_id"
)

// ToolResponse is the only shape that crosses the tool boundary.
type ToolResponse struct {
	Success   bool           `json:"success"`
	Data      map[string]any `json:"data,omitempty"`
	Error     string         `json:"error,omitempty"`
	ErrorCode string         `json:"error_code,omitempty"`
}

func ToolOK(data map[string]any) ToolResponse {
	if data == nil {
		data = map[string]any{}
	}
	return ToolResponse{Success: true, Data: data}
}

func ToolFail(code, message string) ToolResponse {
	return ToolResponse{Success: false, Error: message, ErrorCode: code}
}

// Decode copies Data into out using the json field names.
func (r ToolResponse) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339),
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(r.Data)
}
