package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

type purchaseStorageRequest struct {
	PlanID snowflake.ID `json:"plan_id,string" binding:"required"`
}

func (s *Server) purchaseStorage(c *gin.Context) {
	claims := claimsFrom(c)
	var req purchaseStorageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	result, err := s.treasurySvc.PurchaseStorage(c.Request.Context(), claims.SchoolID, claims.AccountID, req.PlanID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) storageUsage(c *gin.Context) {
	claims := claimsFrom(c)
	usage, err := s.quotaSvc.Usage(c.Request.Context(), claims.AccountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, usage)
}
