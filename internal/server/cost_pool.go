package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	allocationdomain "github.com/smallbiznis/landedcost/internal/allocation/domain"
)

func (s *Server) CreateCostPool(c *gin.Context) {
	var req allocationdomain.CreatePoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.allocationSvc.CreatePool(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCostPools(c *gin.Context) {
	var query struct {
		Kind        string `form:"kind"`
		InvoiceID   string `form:"invoice_id"`
		ContainerID string `form:"container_id"`
		SortBy      string `form:"sort_by"`
		OrderBy     string `form:"order_by"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.allocationSvc.ListPools(c.Request.Context(), allocationdomain.ListPoolsRequest{
		Kind:        strings.TrimSpace(query.Kind),
		InvoiceID:   strings.TrimSpace(query.InvoiceID),
		ContainerID: strings.TrimSpace(query.ContainerID),
		SortBy:      strings.TrimSpace(query.SortBy),
		OrderBy:     strings.TrimSpace(query.OrderBy),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCostPool(c *gin.Context) {
	resp, err := s.allocationSvc.GetPool(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateCostPool(c *gin.Context) {
	var req allocationdomain.UpdatePoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.allocationSvc.UpdatePool(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteCostPool(c *gin.Context) {
	if err := s.allocationSvc.DeletePool(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) ListCostPoolAllocations(c *gin.Context) {
	resp, err := s.allocationSvc.ListAllocations(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AllocateCostPool(c *gin.Context) {
	resp, err := s.allocationSvc.Allocate(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
