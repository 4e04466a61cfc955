package response

import "github.com/gin-gonic/gin"

const (
	CodeOK                 = 0
	CodeBadRequest         = 40000
	CodeUnauthorized       = 40100
	CodeNotFound           = 40400
	CodeInternalServer     = 50000
	CodeUsernameExists     = 40001
	CodeEmailExists        = 40002
	CodeInvalidCredentials = 40101
	CodeUnsupportedFile    = 41500
	CodeFileTooLarge       = 41300
)

type APIResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ActionResult is the envelope of form-style actions (quiz creation,
// attempt recording).
type ActionResult struct {
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
	QuizID   string `json:"quizId,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(200, APIResponse{
		Code:    CodeOK,
		Message: "ok",
		Data:    data,
	})
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}

// Message writes the bare {message} error body.
func Message(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, gin.H{"message": message})
}

func Action(c *gin.Context, httpStatus int, result ActionResult) {
	c.JSON(httpStatus, result)
}

func ActionError(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, ActionResult{Success: false, Error: message})
}
