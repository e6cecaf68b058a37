package entity

// Error codes returned in APIError.Code
const (
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeValidation     = "VALIDATION_FAILED"
	ErrCodeBatchBusy      = "BATCH_BUSY"
	ErrCodeOutputDir      = "OUTPUT_DIR"
	ErrCodeConfigStore    = "CONFIG_STORE"
	ErrCodeRender         = "RENDER_FAILED"
	ErrCodeHistory        = "HISTORY_UNAVAILABLE"
	ErrCodeInternal       = "INTERNAL_ERROR"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewSuccessResponse(data interface{}, message string) *APIResponse {
	return &APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
}

func NewErrorResponse(code string, message string) *APIResponse {
	return &APIResponse{
		Success: false,
		Message: message,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
	}
}

// NewErrorResponseWithData returns an error envelope that still carries a payload,
// e.g. the validation report of a rejected batch.
func NewErrorResponseWithData(code string, message string, data interface{}) *APIResponse {
	resp := NewErrorResponse(code, message)
	resp.Data = data
	return resp
}
