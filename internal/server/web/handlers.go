package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sangaman/lightninggem/internal/common"
	"github.com/sangaman/lightninggem/internal/server/services"
)

// invoiceRequest accepts both the dashboard's form encoding and JSON.
type invoiceRequest struct {
	Name          string `form:"name" json:"name"`
	URL           string `form:"url" json:"url"`
	PayoutRequest string `form:"pay_req_out" json:"payoutRequest"`
	GemID         int64  `form:"gem_id" json:"gemId"`
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.status.Status())
}

// handleListen holds the connection open until the invoice resolves, then
// sends a single server-sent event and closes. If the registry entry is
// replaced or dropped the connection just ends without an event.
func (s *Server) handleListen(c *gin.Context) {
	rHash := c.Param("r_hash")
	ch := s.registry.Subscribe(rHash)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	select {
	case event, ok := <-ch:
		if !ok {
			return
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", event)
		c.Writer.Flush()
	case <-c.Request.Context().Done():
	}
}

func (s *Server) handleInvoice(c *gin.Context) {
	var req invoiceRequest
	if err := c.ShouldBind(&req); err != nil {
		c.String(http.StatusBadRequest, "invalid request")
		return
	}

	s.logger.Info(c.Request.Context(), "invoice request",
		"name", req.Name, "gem_id", req.GemID, "has_payout", req.PayoutRequest != "")

	issued, err := s.issuer.Issue(c.Request.Context(), &services.IssueRequest{
		Name:          req.Name,
		URL:           req.URL,
		PayoutRequest: req.PayoutRequest,
		GemID:         req.GemID,
	})
	if err != nil {
		c.String(statusFromError(err), errorMessage(err))
		return
	}

	c.JSON(http.StatusOK, issued)
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, common.ErrValidation),
		errors.Is(err, common.ErrOutOfSync),
		errors.Is(err, common.ErrAlreadySettled),
		errors.Is(err, common.ErrInvalidPayoutAmount),
		errors.Is(err, common.ErrInvalidPayoutExpiry):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage keeps internal details out of 500-class responses.
func errorMessage(err error) string {
	if statusFromError(err) == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}
