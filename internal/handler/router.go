package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/knolab/knolab/internal/middleware"
)

type RouterDeps struct {
	KBs         *KBHandler
	Documents   *DocumentHandler
	Search      *SearchHandler
	Analysis    *AnalysisHandler
	Suggestions *SuggestionHandler
	JWTSecret   []byte
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))

	authGroup.POST("/kb", deps.KBs.Create)
	authGroup.GET("/kb", deps.KBs.List)
	authGroup.GET("/kb/:id", deps.KBs.Get)
	authGroup.PUT("/kb/:id/default", deps.KBs.SetDefault)
	authGroup.DELETE("/kb/:id", deps.KBs.Delete)

	ingestGroup := authGroup.Group("")
	ingestGroup.Use(middleware.RateLimit(time.Second))
	ingestGroup.POST("/kb/:id/documents", deps.Documents.Ingest)
	ingestGroup.POST("/kb/:id/suggestions/generate", deps.Suggestions.Generate)

	authGroup.GET("/kb/:id/documents", deps.Documents.List)
	authGroup.GET("/kb/:id/documents/:doc_id", deps.Documents.Get)
	authGroup.DELETE("/kb/:id/documents/:doc_id", deps.Documents.Delete)

	authGroup.GET("/kb/:id/search", deps.Search.Search)
	authGroup.GET("/kb/:id/clusters", deps.Analysis.Clusters)
	authGroup.GET("/kb/:id/duplicates", deps.Analysis.Duplicates)
	authGroup.GET("/kb/:id/analytics", deps.Analysis.Analytics)

	authGroup.GET("/kb/:id/suggestions", deps.Suggestions.List)
	authGroup.PUT("/kb/:id/suggestions/:sid/status", deps.Suggestions.UpdateStatus)
}
