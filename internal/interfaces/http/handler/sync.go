package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/skeo/stocksync/internal/application/syncpass"
	"github.com/skeo/stocksync/internal/domain/stock"
	"github.com/skeo/stocksync/internal/interfaces/http/dto"
)

// SyncHandler serves the diagnostics API: the snapshot cache, the
// discrepancy report, pass audit records, and a trigger for new passes
type SyncHandler struct {
	BaseHandler
	report     *syncpass.ReportService
	controller *syncpass.RunController
	policy     *stock.PropagationPolicy
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(report *syncpass.ReportService, controller *syncpass.RunController, policy *stock.PropagationPolicy) *SyncHandler {
	return &SyncHandler{
		report:     report,
		controller: controller,
		policy:     policy,
	}
}

// RegisterRoutes registers the sync diagnostics routes
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/snapshot", h.listSnapshot)
	rg.GET("/snapshot/:key", h.productSnapshot)
	rg.GET("/discrepancies", h.discrepancies)
	rg.GET("/quirks", h.quirks)
	rg.GET("/passes", h.listPasses)
	rg.GET("/passes/:id", h.passDetail)
	rg.POST("/passes", h.runPass)
}

func (h *SyncHandler) listSnapshot(c *gin.Context) {
	entries, err := h.report.Entries(c.Request.Context())
	if err != nil {
		h.Internal(c, err)
		return
	}
	out := make([]dto.SnapshotEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = dto.FromSnapshotEntry(e)
	}
	h.Success(c, out)
}

func (h *SyncHandler) productSnapshot(c *gin.Context) {
	key, err := stock.NewProductKey(c.Param("key"))
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	quantities, err := h.report.EntriesForKey(c.Request.Context(), key)
	if err != nil {
		h.Internal(c, err)
		return
	}
	if len(quantities) == 0 {
		h.NotFound(c, "product not present in any channel snapshot")
		return
	}

	// Enabled channels with no cached observation show up as unknown
	for _, ch := range h.policy.Channels() {
		if _, ok := quantities[ch]; !ok {
			quantities[ch] = stock.UnknownQuantity()
		}
	}
	h.Success(c, dto.ProductSnapshotResponse{
		ProductKey: key.String(),
		Quantities: dto.FromQuantities(quantities),
	})
}

func (h *SyncHandler) discrepancies(c *gin.Context) {
	result, err := h.report.Discrepancies(c.Request.Context())
	if err != nil {
		h.Internal(c, err)
		return
	}

	out := dto.DiscrepancyReportResponse{
		ProductCount:  result.ProductCount,
		Discrepancies: make([]dto.DiscrepancyResponse, len(result.Discrepancies)),
		Actions:       make([]dto.ActionResponse, len(result.Actions)),
		Conflicts:     make([]dto.ConflictResponse, len(result.Conflicts)),
		Anomalies:     len(result.Anomalies),
	}
	for i, d := range result.Discrepancies {
		out.Discrepancies[i] = dto.FromDiscrepancy(d)
	}
	for i, a := range result.Actions {
		out.Actions[i] = dto.FromAction(a)
	}
	for i, cf := range result.Conflicts {
		out.Conflicts[i] = dto.FromConflict(cf)
	}
	h.Success(c, out)
}

func (h *SyncHandler) quirks(c *gin.Context) {
	quirks, err := h.report.Quirks(c.Request.Context())
	if err != nil {
		h.Internal(c, err)
		return
	}
	out := make([]dto.QuirkResponse, len(quirks))
	for i, q := range quirks {
		out[i] = dto.FromQuirk(q)
	}
	h.Success(c, out)
}

func (h *SyncHandler) listPasses(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	passes, err := h.report.RecentPasses(c.Request.Context(), limit)
	if err != nil {
		h.Internal(c, err)
		return
	}
	h.Success(c, passes)
}

func (h *SyncHandler) passDetail(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "pass id must be a UUID")
		return
	}

	pass, pushes, err := h.report.PassDetail(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, stock.ErrPassNotFound) {
			h.NotFound(c, "pass not found")
			return
		}
		h.Internal(c, err)
		return
	}
	h.Success(c, gin.H{"pass": pass, "pushes": pushes})
}

// runPass triggers a synchronous reconciliation pass
func (h *SyncHandler) runPass(c *gin.Context) {
	var req struct {
		ReadOnly bool `json:"read_only"`
	}
	// An empty body means a normal (writing) pass
	_ = c.ShouldBindJSON(&req)

	report, err := h.controller.Run(c.Request.Context(), req.ReadOnly)
	if err != nil {
		h.Internal(c, err)
		return
	}
	h.Success(c, report.Pass)
}
