package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	dailyvolumedomain "github.com/smallbiznis/gascustody/internal/dailyvolume/domain"
)

func (s *Server) CreateDailyVolume(c *gin.Context) {
	var req dailyvolumedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.dailyVolumeSvc.Create(c.Request.Context(), actorID(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "daily_volume.create", "daily_volume", resp.ID.String(), map[string]any{
		"customer_id":      resp.CustomerID.String(),
		"customer_site_id": resp.CustomerSiteID.String(),
		"volume":           resp.Volume,
	})

	respond(c, http.StatusCreated, resp)
}

func (s *Server) ListDailyVolumes(c *gin.Context) {
	var query struct {
		pageQuery
		CustomerID     string `form:"customer_id"`
		CustomerSiteID string `form:"customer_site_id"`
		Volume         string `form:"volume"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	volume, err := optional(query.Volume, parseFloat64)
	if err != nil {
		AbortWithError(c, newValidationError("volume", "invalid_volume", "invalid volume"))
		return
	}
	createdFrom, createdTo, err := timeRange(c, "created_at")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	updatedFrom, updatedTo, err := timeRange(c, "updated_at")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.dailyVolumeSvc.List(c.Request.Context(), dailyvolumedomain.ListRequest{
		Pagination:     query.pagination(),
		CustomerID:     strings.TrimSpace(query.CustomerID),
		CustomerSiteID: strings.TrimSpace(query.CustomerSiteID),
		Volume:         volume,
		CreatedFrom:    createdFrom,
		CreatedTo:      createdTo,
		UpdatedFrom:    updatedFrom,
		UpdatedTo:      updatedTo,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

func (s *Server) GetDailyVolume(c *gin.Context) {
	resp, err := s.dailyVolumeSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondOK(c, resp)
}

func (s *Server) UpdateDailyVolume(c *gin.Context) {
	var req dailyvolumedomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.dailyVolumeSvc.Update(c.Request.Context(), actorID(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "daily_volume.update", "daily_volume", resp.ID.String(), map[string]any{
		"volume": resp.Volume,
	})

	respondOK(c, resp)
}

func (s *Server) DeleteDailyVolume(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.dailyVolumeSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "daily_volume.delete", "daily_volume", id, nil)
	c.Status(http.StatusNoContent)
}
