package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"decisionmesh/internal/graph"
	"decisionmesh/internal/mesh"
)

type filterRequest struct {
	Category string `json:"category"`
}

type pickRequest struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Mode string  `json:"mode"`
}

type resizeRequest struct {
	Width  int `json:"width" binding:"required"`
	Height int `json:"height" binding:"required"`
}

type selectionRequest struct {
	ID string `json:"id"`
}

type entityResponse struct {
	mesh.Entity
	Neighbors []string `json:"neighbors"`
	Visible   bool     `json:"visible"`
}

func (s *Server) registerRoutes(r *gin.Engine) {
	api := r.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/entities", s.handleListEntities)
	api.GET("/entities/:id", s.handleGetEntity)
	api.GET("/scene", s.handleScene)
	api.POST("/filter", s.handleFilter)
	api.POST("/pick", s.handlePick)
	api.POST("/resize", s.handleResize)
	api.GET("/selection", s.handleGetSelection)
	api.PUT("/selection", s.handlePutSelection)

	r.GET("/ws", s.handleWebSocket)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"version":  s.version,
		"entities": s.view.Dataset().Len(),
		"visible":  len(s.view.Visible().Entities),
		"sessions": s.hub.Len(),
	})
}

func (s *Server) handleListEntities(c *gin.Context) {
	category := mesh.NormalizeCategory(c.Query("category"))
	tag := c.Query("tag")

	entities := make([]mesh.Entity, 0)
	for _, e := range s.view.Dataset().Entities() {
		if !category.IsAll() && e.Category != category {
			continue
		}
		if tag != "" && !containsFold(e.Tags, tag) {
			continue
		}
		entities = append(entities, e)
	}
	c.JSON(http.StatusOK, gin.H{"entities": entities})
}

func (s *Server) handleGetEntity(c *gin.Context) {
	entity, ok := s.view.Dataset().Lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "entity not found"})
		return
	}
	neighbors := make([]string, 0)
	for _, e := range graph.Outgoing(s.view.Edges(), entity.ID) {
		neighbors = append(neighbors, e.TargetID)
	}
	c.JSON(http.StatusOK, entityResponse{
		Entity:    entity,
		Neighbors: neighbors,
		Visible:   s.view.Visible().Contains(entity.ID),
	})
}

func (s *Server) handleScene(c *gin.Context) {
	c.JSON(http.StatusOK, s.view.Snapshot())
}

func (s *Server) handleFilter(c *gin.Context) {
	var req filterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	visible := s.view.SetFilter(mesh.NormalizeCategory(req.Category))
	ids := make([]string, 0, len(visible.Entities))
	for _, e := range visible.Entities {
		ids = append(ids, e.ID)
	}
	c.JSON(http.StatusOK, gin.H{
		"category": visible.Category,
		"visible":  ids,
		"edges":    len(visible.Edges),
	})
}

func (s *Server) handlePick(c *gin.Context) {
	var req pickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pick := s.view.Pick
	switch strings.ToLower(req.Mode) {
	case "", "none":
	case "hover":
		pick = s.view.PointerMove
	case "click":
		pick = s.view.Click
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be hover, click or empty"})
		return
	}

	hit, ok := pick(req.X, req.Y)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"hit": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"hit": true, "result": hit})
}

func (s *Server) handleResize(c *gin.Context) {
	var req resizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.view.Resize(req.Width, req.Height); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.view.Viewport())
}

func (s *Server) handleGetSelection(c *gin.Context) {
	c.JSON(http.StatusOK, s.view.Store().State())
}

func (s *Server) handlePutSelection(c *gin.Context) {
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.view.Select(strings.TrimSpace(req.ID)); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.view.Store().State())
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}
