package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	treasurydomain "github.com/lumenis/lumenis/internal/treasury/domain"
)

func (s *Server) financeSummary(c *gin.Context) {
	summary, err := s.financeSvc.Summary(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) payOut(c *gin.Context) {
	claims := claimsFrom(c)
	var req treasurydomain.PayOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	result, err := s.treasurySvc.PayOut(c.Request.Context(), claims.SchoolID, claims.AccountID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
