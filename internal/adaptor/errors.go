package adaptor

import (
	"errors"
	"net/http"

	"hotel-booking/internal/apperror"
	"hotel-booking/pkg/utils"

	"go.uber.org/zap"
)

// retryAfterSeconds is the hint sent with 503 answers.
const retryAfterSeconds = 2

// writeError maps an apperror kind onto the HTTP status and logs at the
// level that kind deserves. Internal errors never expose their cause.
func writeError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	var appErr *apperror.Error
	message := "Internal server error"
	if errors.As(err, &appErr) && appErr.Message != "" {
		message = appErr.Message
	}

	switch apperror.KindOf(err) {
	case apperror.KindValidation:
		log.Warn(operation+" validation failed", zap.Error(err))
		var fields any
		if len(appErr.Fields) > 0 {
			fields = appErr.Fields
		}
		utils.ResponseBadRequest(w, message, fields)
	case apperror.KindNotFound:
		log.Warn(operation+" failed - not found", zap.Error(err))
		utils.ResponseNotFound(w, message)
	case apperror.KindConflict, apperror.KindInvalidTransition, apperror.KindAlreadyPaid:
		log.Warn(operation+" rejected", zap.Error(err))
		utils.ResponseConflict(w, string(appErr.Kind), message)
	case apperror.KindTransient:
		log.Warn(operation+" temporarily unavailable", zap.Error(err))
		utils.ResponseServiceUnavailable(w, message, retryAfterSeconds)
	default:
		log.Error("Failed to "+operation, zap.Error(err))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
