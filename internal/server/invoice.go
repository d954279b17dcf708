package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/agencyflow/internal/invoice/domain"
	"github.com/smallbiznis/agencyflow/pkg/db/pagination"
)

type lineItemRequest struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	TaxPercent  decimal.Decimal `json:"tax_percent"`
}

type createInvoiceRequest struct {
	ClientID      string            `json:"client_id"`
	InvoiceNumber string            `json:"invoice_number"`
	Status        string            `json:"status"`
	DueAt         *time.Time        `json:"due_at"`
	LineItems     []lineItemRequest `json:"line_items"`
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) CreateInvoice(c *gin.Context) {
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	clientID, err := parseOptionalSnowflakeID(req.ClientID)
	if err != nil || clientID == 0 {
		AbortWithError(c, invalidIDError("client_id"))
		return
	}

	items := make([]invoicedomain.LineItemInput, 0, len(req.LineItems))
	for _, item := range req.LineItems {
		items = append(items, invoicedomain.LineItemInput{
			Description: item.Description,
			Quantity:    item.Quantity,
			Rate:        item.Rate,
			TaxPercent:  item.TaxPercent,
		})
	}

	invoice, err := s.invoiceSvc.Create(c.Request.Context(), invoicedomain.CreateRequest{
		TenantID:      tenantID(c),
		ClientID:      clientID,
		InvoiceNumber: req.InvoiceNumber,
		LineItems:     items,
		Status:        req.Status,
		DueAt:         req.DueAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": invoice})
}

func (s *Server) ListInvoices(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	clientID, err := parseOptionalSnowflakeID(c.Query("client_id"))
	if err != nil {
		AbortWithError(c, invalidIDError("client_id"))
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListRequest{
		Pagination: page,
		TenantID:   tenantID(c),
		Status:     c.Query("status"),
		ClientID:   clientID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Invoices, "page_info": resp.PageInfo})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	item, err := s.invoiceSvc.GetByID(c.Request.Context(), tenantID(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) TransitionInvoiceStatus(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	invoice, err := s.invoiceSvc.TransitionStatus(c.Request.Context(), invoicedomain.TransitionRequest{
		TenantID:  tenantID(c),
		InvoiceID: id,
		Status:    req.Status,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": invoice})
}

func (s *Server) DownloadInvoicePDF(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	doc, err := s.invoiceSvc.RenderPDF(c.Request.Context(), tenantID(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(doc.Filename))
	c.Data(http.StatusOK, doc.ContentType, doc.Body)
}
