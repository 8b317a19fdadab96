package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	filedomain "github.com/lumenis/lumenis/internal/file/domain"
	"github.com/lumenis/lumenis/pkg/db/pagination"
)

func (s *Server) uploadFile(c *gin.Context) {
	claims := claimsFrom(c)
	header, err := c.FormFile("file")
	if err != nil {
		AbortWithError(c, newValidationError("file", "missing_file", "multipart file field is required"))
		return
	}
	content, err := header.Open()
	if err != nil {
		AbortWithError(c, filedomain.ErrInvalidFile)
		return
	}
	defer content.Close()

	stored, err := s.fileSvc.Upload(c.Request.Context(), claims.SchoolID, claims.AccountID, filedomain.UploadRequest{
		Name:    header.Filename,
		Size:    header.Size,
		Content: content,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, stored)
}

func (s *Server) listFiles(c *gin.Context) {
	claims := claimsFrom(c)
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	files, info, err := s.fileSvc.List(c.Request.Context(), claims.AccountID, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files, "page_info": info})
}

func (s *Server) getFile(c *gin.Context) {
	claims := claimsFrom(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	file, err := s.fileSvc.Get(c.Request.Context(), claims.AccountID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, file)
}

func (s *Server) deleteFile(c *gin.Context) {
	claims := claimsFrom(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := s.fileSvc.Delete(c.Request.Context(), claims.AccountID, id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
