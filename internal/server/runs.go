package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bilalinamdar/cloud-slang/internal/engine"
	"github.com/bilalinamdar/cloud-slang/pkg/api"
)

func (s *Server) startRun(c *gin.Context) {
	var req api.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest,
			fmt.Sprintf("%s: %v", ErrInvalidJSON, err))
		return
	}
	if req.Artifact == "" {
		errorJSON(c, http.StatusBadRequest, ErrArtifactRequired.Error())
		return
	}

	art, ok := s.engine.Artifact(req.Artifact)
	if !ok {
		errorJSON(c, http.StatusNotFound,
			fmt.Sprintf("%s: %s", engine.ErrArtifactNotFound, req.Artifact))
		return
	}

	var props api.SystemProperties
	if len(req.SystemProperties) > 0 {
		p, err := api.ParseSystemProperties(
			req.SystemProperties, req.Sensitive...,
		)
		if err != nil {
			errorJSON(c, http.StatusBadRequest,
				fmt.Sprintf("%s: %v", ErrInvalidProperties, err))
			return
		}
		props = p
	}

	id, err := s.engine.Start(art, req.Inputs, props)
	if err == nil {
		c.JSON(http.StatusAccepted, api.RunStartedResponse{RunID: id})
		return
	}

	if errors.Is(err, engine.ErrEngineStopped) {
		errorJSON(c, http.StatusServiceUnavailable, err.Error())
		return
	}
	errorJSON(c, http.StatusBadRequest, err.Error())
}

func (s *Server) getRun(c *gin.Context) {
	id := api.RunID(c.Param("runID"))

	run, err := s.engine.GetRun(id)
	if err == nil {
		c.JSON(http.StatusOK, run)
		return
	}
	s.runError(c, id, err)
}

func (s *Server) cancelRun(c *gin.Context) {
	id := api.RunID(c.Param("runID"))

	if err := s.engine.Cancel(id); err != nil {
		s.runError(c, id, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) runError(c *gin.Context, id api.RunID, err error) {
	if errors.Is(err, engine.ErrRunNotFound) {
		errorJSON(c, http.StatusNotFound,
			fmt.Sprintf("%s: %s", err.Error(), id))
		return
	}
	errorJSON(c, http.StatusInternalServerError, err.Error())
}
