package api

// Code classifies control-API failures for programmatic callers.
type Code string

const (
	CodeInvalidRequest     Code = "INVALID_REQUEST"
	CodeInvalidCoordinates Code = "INVALID_COORDINATES"
	CodeInvalidSettings    Code = "INVALID_SETTINGS"
	CodePermissionDenied   Code = "PERMISSION_DENIED"
	CodeNoFix              Code = "NO_FIX"
	CodeNotFound           Code = "NOT_FOUND"
	CodeMissingConfig      Code = "MISSING_CONFIG"
	CodeSaveFailed         Code = "SAVE_FAILED"
	CodeExportFailed       Code = "EXPORT_FAILED"
	CodeLiveTrackFailed    Code = "LIVE_TRACK_FAILED"
	CodeSubmitFailed       Code = "SUBMIT_FAILED"
	CodeInternal           Code = "INTERNAL_ERROR"
)

// Response is the envelope every control-API endpoint returns.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorData `json:"error,omitempty"`
}

type ErrorData struct {
	Message string `json:"message"`
	Code    Code   `json:"code"`
}

func SuccessResponse(data any) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

func ErrorResponse(message string, code Code) Response {
	return Response{
		Success: false,
		Error: &ErrorData{
			Message: message,
			Code:    code,
		},
	}
}
