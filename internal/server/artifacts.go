package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bilalinamdar/cloud-slang/pkg/api"
)

func (s *Server) listArtifacts(c *gin.Context) {
	names := s.engine.Artifacts()
	res := make([]*api.ArtifactInfo, 0, len(names))
	for _, name := range names {
		if art, ok := s.engine.Artifact(name); ok {
			res = append(res, api.NewArtifactInfo(art))
		}
	}
	c.JSON(http.StatusOK, api.ArtifactsListResponse{
		Artifacts: res,
		Count:     len(res),
	})
}

func (s *Server) getArtifact(c *gin.Context) {
	name := api.Name(c.Param("name"))
	art, ok := s.engine.Artifact(name)
	if !ok {
		errorJSON(c, http.StatusNotFound,
			fmt.Sprintf("artifact not found: %s", name))
		return
	}
	c.JSON(http.StatusOK, api.NewArtifactInfo(art))
}

func (s *Server) compileArtifact(c *gin.Context) {
	var req api.CompileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest,
			fmt.Sprintf("%s: %v", ErrInvalidJSON, err))
		return
	}

	var entry api.Executable
	var deps []api.Executable
	for _, exe := range req.Executables() {
		if entry == nil && exe.ExecutableName() == req.Entry {
			entry = exe
			continue
		}
		deps = append(deps, exe)
	}
	if entry == nil {
		errorJSON(c, http.StatusBadRequest,
			fmt.Sprintf("%s: '%s'", ErrEntryNotFound, req.Entry))
		return
	}

	art, err := s.engine.Compile(entry, deps...)
	if err == nil {
		c.JSON(http.StatusCreated, api.NewArtifactInfo(art))
		return
	}

	if errors.Is(err, api.ErrCompilation) {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}
	errorJSON(c, http.StatusInternalServerError, err.Error())
}
