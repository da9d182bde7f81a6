package response

import (
	"errors"
	"log"

	"tubeauth/internal/pkg/apperr"

	"github.com/gin-gonic/gin"
)

const internalMessage = "Something went wrong"

func Success(c *gin.Context, statusCode int, data interface{}, message string) {
	c.JSON(statusCode, gin.H{
		"statusCode": statusCode,
		"data":       data,
		"message":    message,
		"success":    true,
	})
}

// Error writes the failure envelope for err. Unclassified errors are reported
// as internal; their text only reaches the log.
func Error(c *gin.Context, err error) {
	statusCode, body := failure(c, err)
	c.JSON(statusCode, body)
}

// Abort is Error for middleware: it also stops the handler chain.
func Abort(c *gin.Context, err error) {
	statusCode, body := failure(c, err)
	c.AbortWithStatusJSON(statusCode, body)
}

func failure(c *gin.Context, err error) (int, gin.H) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.Wrap(apperr.KindInternal, internalMessage, err)
	}

	statusCode := apperr.HTTPStatus(appErr.Kind)
	message := appErr.Message
	if message == "" {
		message = internalMessage
	}
	details := appErr.Errors
	if details == nil {
		details = []string{}
	}

	if statusCode >= 500 {
		_ = c.Error(err)
		log.Printf("response_error kind=%s status=%d path=%s error=%q", appErr.Kind, statusCode, c.Request.URL.Path, err.Error())
	}

	return statusCode, gin.H{
		"statusCode": statusCode,
		"message":    message,
		"errors":     details,
		"success":    false,
		"data":       nil,
	}
}
