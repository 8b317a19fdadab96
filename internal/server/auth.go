package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	identitydomain "github.com/lumenis/lumenis/internal/identity/domain"
)

type createSchoolRequest struct {
	Name             string `json:"name" binding:"required"`
	OperatorEmail    string `json:"operator_email" binding:"required,email"`
	OperatorPassword string `json:"operator_password" binding:"required,min=8"`
}

func (s *Server) createSchool(c *gin.Context) {
	var req createSchoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	school, operator, err := s.identitySvc.CreateSchool(c.Request.Context(), req.Name, req.OperatorEmail, req.OperatorPassword)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"school":   school,
		"operator": operator,
	})
}

func (s *Server) register(c *gin.Context) {
	var req identitydomain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	account, err := s.identitySvc.Register(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

func (s *Server) login(c *gin.Context) {
	var req identitydomain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	session, err := s.identitySvc.Login(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (s *Server) me(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	account, err := s.identitySvc.GetAccount(c.Request.Context(), claims.AccountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}
