package controller

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"cataid-backend/internal/report"
	"cataid-backend/internal/service"
	"cataid-backend/utilities"
)

type ReportController struct {
	ReportService service.ReportService
}

func NewReportController(reportService service.ReportService) *ReportController {
	return &ReportController{ReportService: reportService}
}

type exportRequest struct {
	BarChart      string `json:"barChart"`
	DoughnutChart string `json:"doughnutChart"`
}

// GetFormats handles GET /reports/formats
func (rc *ReportController) GetFormats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"formats": rc.ReportService.Formats()})
}

// ExportReport handles POST /assessments/:id/export/:format and streams the
// rendered file. The ETag is the content digest.
func (rc *ReportController) ExportReport(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	var req exportRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: expected barChart/doughnutChart strings"})
			return
		}
	}
	charts := []report.Chart{
		decodeChart("bar", "Section scores", req.BarChart),
		decodeChart("doughnut", "Score distribution", req.DoughnutChart),
	}

	out, err := rc.ReportService.Export(id, c.Param("format"), charts)
	if err != nil {
		respondError(c, err)
		return
	}
	writeExport(c, out)
}

// writeExport sends a rendered file with its digest as the ETag and answers
// a matching If-None-Match with 304.
func writeExport(c *gin.Context, out *service.Export) {
	etag := `"` + out.Digest + `"`
	c.Header("ETag", etag)
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, out.FileName))
	c.Data(http.StatusOK, out.ContentType, out.Data)
}

// decodeChart accepts raw base64 or a data URL. Undecodable input yields a
// chart without bytes, which the report drops.
func decodeChart(name, caption, encoded string) report.Chart {
	chart := report.Chart{Name: name, Caption: caption}
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return chart
	}
	if i := strings.Index(encoded, ","); strings.HasPrefix(encoded, "data:") && i >= 0 {
		encoded = encoded[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		utilities.Warn("ignoring %s chart: %v", name, err)
		return chart
	}
	chart.Data = data
	return chart
}
