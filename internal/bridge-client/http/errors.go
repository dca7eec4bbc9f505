package http

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/bridge-client/internal/bridge-client/coordinator"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/shared"
)

var statusByKind = map[string]int{
	"InvalidAmount":         http.StatusBadRequest,
	"InvalidRecipient":      http.StatusBadRequest,
	"SameNetwork":           http.StatusBadRequest,
	"UnsupportedChain":      http.StatusBadRequest,
	"InsufficientBalance":   http.StatusUnprocessableEntity,
	"InsufficientAllowance": http.StatusUnprocessableEntity,
	"ContractCallReverted":  http.StatusUnprocessableEntity,
	"Busy":                  http.StatusConflict,
	"NotConnected":          http.StatusPreconditionFailed,
	"WalletUnavailable":     http.StatusServiceUnavailable,
	"UserRejected":          http.StatusForbidden,
	"NetworkSwitchFailed":   http.StatusBadGateway,
	"TaskSubmissionFailed":  http.StatusBadGateway,
	"TaskFailed":            http.StatusBadGateway,
	"PollingTransientError": http.StatusBadGateway,
}

// HTTPStatus maps an error onto the response code of the local API.
func HTTPStatus(err error) int {
	var se *coordinator.StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return http.StatusNotFound
	}
	if code, ok := statusByKind[shared.KindOf(err)]; ok {
		return code
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	code := HTTPStatus(err)
	if code >= http.StatusInternalServerError {
		log.Error("request failed", "path", c.FullPath(), "error", err)
	}
	kind := shared.KindOf(err)
	if kind == "Internal" {
		kind = ""
	}
	c.JSON(code, errorRes{Error: err.Error(), Kind: kind})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorRes{Error: err.Error()})
}
