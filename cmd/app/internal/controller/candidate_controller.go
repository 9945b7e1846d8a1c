package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cataid-backend/internal/model"
	"cataid-backend/internal/report"
	"cataid-backend/internal/service"
)

type CandidateController struct {
	CandidateService service.CandidateService
	ProgressService  service.ProgressService
}

func NewCandidateController(candidateService service.CandidateService, progressService service.ProgressService) *CandidateController {
	return &CandidateController{CandidateService: candidateService, ProgressService: progressService}
}

func (cc *CandidateController) CreateCandidate(c *gin.Context) {
	var candidate model.Candidate
	if err := c.ShouldBindJSON(&candidate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if err := cc.CandidateService.CreateCandidate(&candidate); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, candidate)
}

func (cc *CandidateController) GetCandidate(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	candidate, err := cc.CandidateService.GetCandidate(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, candidate)
}

// GetProgress handles GET /candidates/:id/progress
func (cc *CandidateController) GetProgress(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	progress, err := cc.ProgressService.Compare(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

type progressExportRequest struct {
	BarChart  string `json:"barChart"`
	LineChart string `json:"lineChart"`
}

// ExportProgress handles GET and POST /candidates/:id/progress/export/:format.
// The body with chart images is optional.
func (cc *CandidateController) ExportProgress(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	var req progressExportRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: expected barChart/lineChart strings"})
			return
		}
	}
	charts := []report.Chart{
		decodeChart("bar", "Section comparison", req.BarChart),
		decodeChart("line", "Score over time", req.LineChart),
	}

	out, err := cc.ProgressService.Export(id, c.Param("format"), charts)
	if err != nil {
		respondError(c, err)
		return
	}
	writeExport(c, out)
}
