package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rorocorp/uploadcore/uploaderr"
)

// envelope is the unified response wrapper: {message, status, code, data}.
type envelope struct {
	Message string      `json:"message"`
	Status  int         `json:"status"` // 1 on success, 0 on failure
	Code    string      `json:"code"`
	Data    interface{} `json:"data,omitempty"`
}

func ok(c *gin.Context, httpStatus int, data interface{}) {
	c.JSON(httpStatus, envelope{Message: "ok", Status: 1, Code: "0", Data: data})
}

// fail maps a uploaderr.Kind to its HTTP status and writes the failure
// envelope.
func fail(c *gin.Context, err error) {
	kind, found := uploaderr.KindOf(err)
	code := uploaderr.CodeOf(err)
	if !found {
		c.JSON(http.StatusInternalServerError, envelope{Message: err.Error(), Status: 0, Code: "INTERNAL"})
		return
	}

	httpStatus := http.StatusInternalServerError
	switch kind {
	case uploaderr.InvalidArgument:
		httpStatus = http.StatusBadRequest
	case uploaderr.NotFound:
		httpStatus = http.StatusNotFound
	case uploaderr.FailedPrecondition:
		httpStatus = http.StatusConflict
		if code == "SYSTEM_NOT_INITIALIZED" {
			httpStatus = http.StatusBadRequest
		}
	case uploaderr.AlreadyExists:
		httpStatus = http.StatusConflict
	case uploaderr.Unavailable:
		httpStatus = http.StatusInternalServerError
	case uploaderr.DataLoss:
		httpStatus = http.StatusInternalServerError
	}

	c.JSON(httpStatus, envelope{Message: err.Error(), Status: 0, Code: code})
}
