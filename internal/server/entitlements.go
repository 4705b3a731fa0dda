package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	"github.com/postloom/postloom/internal/authctx"
	"github.com/postloom/postloom/internal/plan"
	usagedomain "github.com/postloom/postloom/internal/usage/domain"
	userdomain "github.com/postloom/postloom/internal/user/domain"
)

// CheckFeature reports whether the workspace's plan grants a boolean or
// numeric feature. The decision itself is fail-closed and always renders
// with a 200.
func (s *Server) CheckFeature(c *gin.Context) {
	workspaceID, ok := s.authorizedWorkspace(c)
	if !ok {
		return
	}

	feature := plan.Feature(c.Param("feature"))
	if !feature.Valid() {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result := s.billingSvc.CheckPlanFeature(c.Request.Context(), workspaceID, feature)
	c.JSON(http.StatusOK, result)
}

// CheckUsage reports whether a metered action is still within the plan
// ceiling, together with the numbers behind the decision.
func (s *Server) CheckUsage(c *gin.Context) {
	workspaceID, ok := s.authorizedWorkspace(c)
	if !ok {
		return
	}

	action, ok := usagedomain.ParseAction(c.Param("action"))
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	subjectID := workspaceID
	if action == usagedomain.ActionWorkspace {
		// Workspace creation is capped per owner, not per workspace.
		user, ok := s.authenticatedUser(c)
		if !ok {
			return
		}
		subjectID = user.ID
	}

	result := s.billingSvc.CheckUsageLimit(c.Request.Context(), subjectID, action)
	c.JSON(http.StatusOK, result)
}

// authorizedWorkspace parses the workspace path parameter and confirms the
// caller is a member. Unknown and inaccessible workspaces are both 404s.
func (s *Server) authorizedWorkspace(c *gin.Context) (snowflake.ID, bool) {
	workspaceID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return 0, false
	}

	user, ok := s.authenticatedUser(c)
	if !ok {
		return 0, false
	}

	hasAccess, err := s.workspaceRepo.HasAccess(c.Request.Context(), s.db, workspaceID, user.ID)
	if err != nil {
		AbortWithError(c, ErrInternal)
		return 0, false
	}
	if !hasAccess {
		AbortWithError(c, ErrNotFound)
		return 0, false
	}
	return workspaceID, true
}

func (s *Server) authenticatedUser(c *gin.Context) (*userdomain.User, bool) {
	clerkUserID := authctx.ClerkUserID(c.Request.Context())
	if clerkUserID == "" {
		AbortWithError(c, ErrUnauthorized)
		return nil, false
	}

	user, err := s.userRepo.FindByClerkID(c.Request.Context(), s.db, clerkUserID)
	if err != nil {
		AbortWithError(c, ErrInternal)
		return nil, false
	}
	if user == nil {
		AbortWithError(c, ErrUnauthorized)
		return nil, false
	}
	return user, true
}
