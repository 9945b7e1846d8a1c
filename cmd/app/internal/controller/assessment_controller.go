package controller

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"cataid-backend/internal/answers"
	"cataid-backend/internal/model"
	"cataid-backend/internal/service"
	"cataid-backend/internal/workflow"
)

type AssessmentController struct {
	AssessmentService service.AssessmentService
	PageSize          int
}

func NewAssessmentController(assessmentService service.AssessmentService, pageSize int) *AssessmentController {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &AssessmentController{AssessmentService: assessmentService, PageSize: pageSize}
}

// CreateAssessment handles POST /assessments
func (ac *AssessmentController) CreateAssessment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req struct {
		CandidateID uint `json:"candidate_id" binding:"required"`
		AssessorID  uint `json:"assessor_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: candidate_id is required"})
		return
	}
	assessment, err := ac.AssessmentService.CreateAssessment(actor, req.CandidateID, req.AssessorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, assessment)
}

// ListAssessments handles GET /assessments?status=&candidate_id=&assessor_id=&page=
func (ac *AssessmentController) ListAssessments(c *gin.Context) {
	f := service.ListFilter{Limit: ac.PageSize}
	if s := c.Query("status"); s != "" {
		status, err := workflow.ParseStatus(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		f.Status = status
	}
	if s := c.Query("exclude_status"); s != "" {
		status, err := workflow.ParseStatus(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		f.ExcludeStatus = status
	}
	f.CandidateID = queryUint(c, "candidate_id")
	f.AssessorID = queryUint(c, "assessor_id")
	f.StaffID = queryUint(c, "staff_id")
	f.CandidateName = c.Query("candidate")

	var err error
	if f.From, err = queryDate(c, "from", false); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if f.To, err = queryDate(c, "to", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && page > 1 {
		f.Offset = (page - 1) * ac.PageSize
	}

	list, err := ac.AssessmentService.ListAssessments(f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assessments": list, "count": len(list)})
}

// GetStats handles GET /assessments/stats
func (ac *AssessmentController) GetStats(c *gin.Context) {
	counts, err := ac.AssessmentService.CountByStatus()
	if err != nil {
		respondError(c, err)
		return
	}
	out := make(gin.H, len(counts))
	for status, n := range counts {
		out[string(status)] = n
	}
	c.JSON(http.StatusOK, out)
}

func (ac *AssessmentController) GetAssessment(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	assessment, err := ac.AssessmentService.GetAssessment(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, assessment)
}

// SaveAnswers handles PUT /assessments/:id/answers with a flat answer map.
func (ac *AssessmentController) SaveAnswers(c *gin.Context) {
	ac.edit(c, ac.AssessmentService.SaveAnswers, false)
}

// SubmitAssessment handles POST /assessments/:id/submit. The body may carry a
// final answer update.
func (ac *AssessmentController) SubmitAssessment(c *gin.Context) {
	ac.edit(c, ac.AssessmentService.Submit, true)
}

type editFunc func(workflow.Actor, uint, answers.Bag) (*model.Assessment, error)

func (ac *AssessmentController) edit(c *gin.Context, apply editFunc, optionalBody bool) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	var raw map[string]interface{}
	if c.Request.ContentLength != 0 || !optionalBody {
		if err := c.ShouldBindJSON(&raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: expected a JSON object of answers"})
			return
		}
	}

	assessment, err := apply(actor, id, bagFrom(raw))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, assessment)
}

// ReviewAssessment handles POST /assessments/:id/review
func (ac *AssessmentController) ReviewAssessment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req struct {
		Decision string `json:"decision" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: decision is required"})
		return
	}
	assessment, err := ac.AssessmentService.Review(actor, id, req.Decision)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, assessment)
}

// AssignAssessment handles POST /assessments/:id/assign
func (ac *AssessmentController) AssignAssessment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req struct {
		AssessorID uint `json:"assessor_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: assessor_id is required"})
		return
	}
	assessment, err := ac.AssessmentService.Assign(actor, id, req.AssessorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, assessment)
}

// LeadEdit handles POST /assessments/:id/lead-edit
func (ac *AssessmentController) LeadEdit(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	assessment, err := ac.AssessmentService.LeadEdit(actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, assessment)
}

// GetScore handles GET /assessments/:id/score
func (ac *AssessmentController) GetScore(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	m, err := ac.AssessmentService.GetScore(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sectionScores":         m.SectionScores,
		"sectionQuestionScores": m.SectionQuestionScores,
		"totalScore":            m.TotalScore,
		"maxScore":              m.MaxScore,
		"percentage":            m.Percentage(),
	})
}

// GetRecommendations handles GET /assessments/:id/recommendations
func (ac *AssessmentController) GetRecommendations(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	blocks, err := ac.AssessmentService.GetRecommendations(id)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, gin.H{"category": b.Category, "tier": b.Tier.String(), "items": b.Items})
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": out})
}

// bagFrom flattens a decoded JSON object into an answer bag. Null clears a
// key; nested objects and arrays are ignored.
func bagFrom(raw map[string]interface{}) answers.Bag {
	bag := make(answers.Bag, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			bag[k] = ""
		case string:
			bag[k] = val
		case float64:
			bag[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			bag[k] = strconv.FormatBool(val)
		}
	}
	return bag
}

// queryDate parses a YYYY-MM-DD query value. endOfDay moves it to the last
// microsecond of that day so the bound covers the whole day.
func queryDate(c *gin.Context, key string, endOfDay bool) (*time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	d, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s date %q, expected YYYY-MM-DD", key, v)
	}
	if endOfDay {
		d = d.Add(24*time.Hour - time.Microsecond)
	}
	return &d, nil
}

func queryUint(c *gin.Context, key string) uint {
	v, err := strconv.ParseUint(c.Query(key), 10, 64)
	if err != nil {
		return 0
	}
	return uint(v)
}
