package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cataid-backend/internal/catalog"
)

type CatalogController struct {
	Catalog *catalog.Catalog
	Library *catalog.Library
}

func NewCatalogController(cat *catalog.Catalog, lib *catalog.Library) *CatalogController {
	return &CatalogController{Catalog: cat, Library: lib}
}

// GetCatalog handles GET /catalog
func (cc *CatalogController) GetCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":        cc.Catalog.Version,
		"sections":       cc.Catalog.Sections,
		"maxScore":       cc.Catalog.MaxScore(),
		"questionCount":  cc.Catalog.QuestionCount(),
		"guidedSections": cc.Library.Categories(),
	})
}
