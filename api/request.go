package api

import (
	"bytes"
	"encoding/json"

	"github.com/gin-gonic/gin"

	apperrors "github.com/fernandomesquita/stenopro/errors"
	"github.com/fernandomesquita/stenopro/server"
	"github.com/fernandomesquita/stenopro/validation"
)

// pathID parses the :id route parameter, answering 400 when it is invalid.
func pathID(c *gin.Context) (uint, bool) {
	id, err := validation.ParseID("id", c.Param("id"))
	if err != nil {
		server.RespondWithError(c, err)
		return 0, false
	}
	return id, true
}

// bindJSON decodes the request body into dst and runs struct validation.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		server.RespondWithError(c, apperrors.InvalidInput("body", "malformed JSON body"))
		return false
	}
	if err := validation.Validate(dst); err != nil {
		server.RespondWithError(c, err)
		return false
	}
	return true
}

// optionalString tells an absent JSON field from an explicit null.
type optionalString struct {
	Set   bool
	Value *string
}

func (o *optionalString) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(b, []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}
