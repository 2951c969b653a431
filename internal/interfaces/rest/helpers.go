package rest

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"
	"github.com/ynput/ayon-backend-sub000/pkg/auth"
	"github.com/ynput/ayon-backend-sub000/pkg/constants"
	"github.com/ynput/ayon-backend-sub000/pkg/errors"
	"github.com/ynput/ayon-backend-sub000/pkg/logger"
)

// GetUserFromContext extracts the authenticated user from gin.Context.
// Requests that passed RequireAuth always carry one.
func GetUserFromContext(c *gin.Context) auth.UserSession {
	v, exists := c.Get(constants.ContextKeyUser)
	if !exists {
		return auth.UserSession{}
	}
	user, _ := v.(auth.UserSession)
	return user
}

// RespondAppError sends a standardised JSON error response using pkg/errors
func RespondAppError(c *gin.Context, err error) {
	code := errors.GetHTTPStatus(err)
	resp := errors.ToResponse(err)

	if code >= 500 {
		logger.WithContext(c.Request.Context()).WithFields(logrus.Fields{
			"status": code,
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).WithError(err).Error("❌ request failed")
	}

	body := gin.H{
		constants.ResponseError: resp.Message,
		constants.FieldMessage:  resp.Message,
		constants.FieldCode:     resp.Code,
		constants.FieldData:     nil,
	}
	if resp.Details != nil {
		body["details"] = resp.Details
	}
	c.JSON(code, body)
}

// BindJSON binds JSON and returns true if successful. If failed, it sends bad request error.
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		RespondAppError(c, validationError("body", err))
		return false
	}
	return true
}

// BindJSONStrict binds JSON and rejects unknown fields
func BindJSONStrict(c *gin.Context, obj interface{}) bool {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(obj); err != nil {
		RespondAppError(c, validationError("body", err))
		return false
	}
	if err := binding.Validator.ValidateStruct(obj); err != nil {
		RespondAppError(c, validationError("body", err))
		return false
	}
	return true
}

// bindDocument decodes a JSON object body. Numbers keep their integer
// form so integer fields are not turned into floats.
func bindDocument(c *gin.Context) (map[string]any, bool) {
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		RespondAppError(c, validationError("body", err))
		return nil, false
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, true
}

// respondNoContent finishes a successful write without a body
func respondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func validationError(field string, err error) error {
	return errors.NewValidationError(field, err.Error())
}
