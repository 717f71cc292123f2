package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/htmlrender/invoice"
	"github.com/use-agent/htmlrender/models"
)

// GenerateInvoice returns a handler for POST /generate/invoice.
//
// The body is a JSON array of invoices. Query parameters:
//   - output_format: "pdf" (default) or "image"
//   - red, yellow: day thresholds for row colouring (configured defaults)
//
// The artifact is always returned base64-encoded with its MIME type.
func GenerateInvoice(svc *invoice.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var invoices []invoice.Invoice
		if !bindRequest(c, &invoices) {
			return
		}
		if len(invoices) == 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Error: models.MsgNoInvoiceData})
			return
		}

		format, err := invoice.ParseOutputFormat(c.DefaultQuery("output_format", string(invoice.OutputPDF)))
		if err != nil {
			_ = c.Error(err)
			return
		}

		th := svc.DefaultThresholds()
		if th.Red, err = queryInt(c, "red", th.Red); err != nil {
			_ = c.Error(err)
			return
		}
		if th.Yellow, err = queryInt(c, "yellow", th.Yellow); err != nil {
			_ = c.Error(err)
			return
		}

		res, err := svc.Generate(c.Request.Context(), invoices, format, th)
		if err != nil {
			_ = c.Error(err)
			return
		}

		c.JSON(http.StatusOK, models.InvoiceResponse{
			Status:   "success",
			Data:     res.Base64(),
			MimeType: res.ContentType,
		})
	}
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	v, ok := c.GetQuery(key)
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, models.InvalidInput(fmt.Sprintf("query parameter %q must be an integer number of days, got %q", key, v))
	}
	return n, nil
}
