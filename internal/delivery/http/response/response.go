package response

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response standardizes the JSON body of the few machine endpoints
// (health, errors for clients asking for JSON).
type Response struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     interface{} `json:"error,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// Success sends a success response
func Success(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, Response{
		Success:   true,
		Message:   message,
		Data:      data,
		RequestID: c.GetString("RequestID"),
	})
}

// Error sends an error response
func Error(c *gin.Context, code int, message string, err interface{}) {
	c.JSON(code, Response{
		Success:   false,
		Message:   message,
		Error:     err,
		RequestID: c.GetString("RequestID"),
	})
}

// HTML renders a named page template.
func HTML(c *gin.Context, code int, name string, data any) {
	c.HTML(code, name, data)
}

const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Attachment sends a download produced by write. Nothing is written to
// the client unless write succeeds, so failures can still render an error page.
func Attachment(c *gin.Context, filename, contentType string, write func(w io.Writer) error) error {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return err
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
	return nil
}
