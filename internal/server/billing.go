package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	paymentdomain "github.com/postloom/postloom/internal/payment/domain"
)

func (s *Server) CreateCheckoutSession(c *gin.Context) {
	var req paymentdomain.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.checkoutSvc.CreateCheckoutSession(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) CreatePortalSession(c *gin.Context) {
	resp, err := s.checkoutSvc.CreatePortalSession(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
