package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/htmlrender/models"
	"github.com/use-agent/htmlrender/renderer"
)

// ConvertPDF returns a handler for POST /api/pdf/convert.
//
// Flow:
//  1. Parse the body; missing html is a 400 with the fixed message.
//  2. PDFService.Convert → raw bytes.
//  3. Respond with a binary attachment, or base64 JSON when options.base64.
//
// Conversion failures are handed to the error middleware via c.Error.
func ConvertPDF(svc *renderer.PDFService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.PDFRequest
		if !bindRequest(c, &req) {
			return
		}
		if strings.TrimSpace(req.HTML) == "" {
			htmlRequired(c)
			return
		}

		res, err := svc.Convert(c.Request.Context(), req.HTML, req.Options)
		if err != nil {
			_ = c.Error(err)
			return
		}
		respondArtifact(c, res, req.Options.WantsBase64())
	}
}

// ConvertImage returns a handler for POST /api/image/convert.
func ConvertImage(svc *renderer.ImageService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ImageRequest
		if !bindRequest(c, &req) {
			return
		}
		if strings.TrimSpace(req.HTML) == "" {
			htmlRequired(c)
			return
		}

		res, err := svc.Convert(c.Request.Context(), req.HTML, req.Options)
		if err != nil {
			_ = c.Error(err)
			return
		}
		respondArtifact(c, res, req.Options.WantsBase64())
	}
}

// bindRequest decodes the JSON body into req. An empty body is not an
// error: it decodes to a request with no html. Oversized bodies and
// malformed JSON are reported through the error middleware.
func bindRequest(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		_ = c.Error(models.NewRenderError(models.ErrCodePayloadTooLarge, "request body too large", err))
		return false
	}
	_ = c.Error(models.NewRenderError(models.ErrCodeInvalidInput, bindErrorMessage(err), err))
	return false
}

// bindErrorMessage describes a decode failure in terms of the JSON payload
// rather than the Go types it decodes into.
func bindErrorMessage(err error) string {
	var (
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
		renderErr *models.RenderError
	)
	switch {
	case errors.As(err, &renderErr):
		return renderErr.Message
	case errors.As(err, &typeErr):
		if typeErr.Field == "" {
			return fmt.Sprintf("request body has the wrong shape: got a JSON %s", typeErr.Value)
		}
		return fmt.Sprintf("invalid value for %q: got %s", typeErr.Field, typeErr.Value)
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return "malformed JSON body"
	default:
		return err.Error()
	}
}

func htmlRequired(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Error: models.MsgHTMLRequired})
}

// respondArtifact writes the rendered bytes as a download or as base64 JSON.
func respondArtifact(c *gin.Context, res *renderer.Result, asBase64 bool) {
	if asBase64 {
		c.JSON(http.StatusOK, models.Base64Response{
			Data:     res.Base64(),
			Type:     res.ContentType,
			Filename: res.Filename,
		})
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+res.Filename)
	c.Data(http.StatusOK, res.ContentType, res.Data)
}
