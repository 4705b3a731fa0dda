package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	workspacedomain "github.com/postloom/postloom/internal/workspace/domain"
)

func (s *Server) CreateWorkspace(c *gin.Context) {
	var req workspacedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.workspaceSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}
