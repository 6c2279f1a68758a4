package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	housedomain "github.com/smallbiznis/utilitybill/internal/house/domain"
	"github.com/smallbiznis/utilitybill/pkg/db/pagination"
)

func (s *Server) CreateHouse(c *gin.Context) {
	var req housedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.houseSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListHouses(c *gin.Context) {
	var query struct {
		pagination.Pagination
		MohallaID string `form:"mohalla_id"`
		Active    string `form:"active"`
		Query     string `form:"q"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	active, err := parseOptionalBool(query.Active)
	if err != nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "invalid active"))
		return
	}

	resp, err := s.houseSvc.List(c.Request.Context(), housedomain.ListRequest{
		Pagination: query.Pagination,
		MohallaID:  strings.TrimSpace(query.MohallaID),
		Active:     active,
		Query:      strings.TrimSpace(query.Query),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Houses, "page_info": resp.PageInfo})
}

func (s *Server) GetHouse(c *gin.Context) {
	resp, err := s.houseSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateHouse(c *gin.Context) {
	var req housedomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.houseSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteHouse(c *gin.Context) {
	if err := s.houseSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
