package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	landedcostdomain "github.com/smallbiznis/landedcost/internal/landedcost/domain"
)

type landedCostQuery struct {
	InvoiceID   string `form:"invoice_id"`
	ContainerID string `form:"container_id"`
	InvoiceDate string `form:"invoice_date"`
}

func (q landedCostQuery) filter() landedcostdomain.Filter {
	return landedcostdomain.Filter{
		InvoiceID:   strings.TrimSpace(q.InvoiceID),
		ContainerID: strings.TrimSpace(q.ContainerID),
		InvoiceDate: strings.TrimSpace(q.InvoiceDate),
	}
}

func (s *Server) ListLandedCosts(c *gin.Context) {
	var query landedCostQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.landedCostSvc.LineCosts(c.Request.Context(), query.filter())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSKULandedCosts(c *gin.Context) {
	var query landedCostQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.landedCostSvc.SKUCosts(c.Request.Context(), query.filter())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
