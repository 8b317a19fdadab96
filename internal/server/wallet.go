package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) getWallet(c *gin.Context) {
	claims := claimsFrom(c)
	wallet, transactions, err := s.walletSvc.Get(c.Request.Context(), claims.AccountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"wallet":       wallet,
		"transactions": transactions,
	})
}

type fundWalletRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

func (s *Server) fundWallet(c *gin.Context) {
	claims := claimsFrom(c)
	var req fundWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	account, err := s.identitySvc.GetAccount(c.Request.Context(), claims.AccountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	result, err := s.treasurySvc.FundWallet(c.Request.Context(), claims.SchoolID, claims.AccountID, req.Amount, account.Email)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type verifyPaymentRequest struct {
	Reference string `json:"reference" binding:"required"`
}

func (s *Server) verifyPayment(c *gin.Context) {
	var req verifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	result, err := s.treasurySvc.VerifyPayment(c.Request.Context(), req.Reference)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
