package zimage

// Upstream task status values.
const (
	statusInProgress = "IN_PROGRESS"
	statusSuccess    = "SUCCESS"
	statusFailed     = "FAILED"
)

// codeOK is the success value of the code field embedded in every body.
const codeOK = 200

// submitRequest is the body of POST /api/generate.
type submitRequest struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio"`
}

// submitResponse is the body returned by POST /api/generate.
type submitResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    *submitData `json:"data"`
}

type submitData struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// statusResponse is the body returned by GET /api/status.
type statusResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    *statusData `json:"data"`
}

type statusData struct {
	Status          string         `json:"status"`
	TaskID          string         `json:"task_id"`
	Request         *echoedRequest `json:"request,omitempty"`
	Response        ResultPayload  `json:"response"`
	ConsumedCredits *float64       `json:"consumed_credits,omitempty"`
	CreatedAt       string         `json:"created_at,omitempty"`
	ErrorMessage    *string        `json:"error_message,omitempty"`
}

// echoedRequest is the original request as echoed back by the status endpoint.
type echoedRequest struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio"`
}
