package response

import "github.com/gin-gonic/gin"

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ChatResponse is the /chat body. Failures are rendered into Response too.
type ChatResponse struct {
	Response string `json:"response"`
}

type StatusResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	DraftID string      `json:"draft_id,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func Chat(c *gin.Context, httpStatus int, text string) {
	c.JSON(httpStatus, ChatResponse{Response: text})
}

func OK(c *gin.Context, message string) {
	c.JSON(200, StatusResponse{
		Status:  StatusSuccess,
		Message: message,
	})
}

func Draft(c *gin.Context, message, draftID string) {
	c.JSON(200, StatusResponse{
		Status:  StatusSuccess,
		Message: message,
		DraftID: draftID,
	})
}

func Data(c *gin.Context, data interface{}) {
	c.JSON(200, StatusResponse{
		Status:  StatusSuccess,
		Message: "ok",
		Data:    data,
	})
}

func Error(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, StatusResponse{
		Status:  StatusError,
		Message: message,
	})
}
