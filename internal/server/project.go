package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	activitydomain "github.com/smallbiznis/agencyflow/internal/activity/domain"
	"github.com/smallbiznis/agencyflow/internal/errs"
	"github.com/smallbiznis/agencyflow/internal/fanout"
	projectdomain "github.com/smallbiznis/agencyflow/internal/project/domain"
	"github.com/smallbiznis/agencyflow/pkg/db/pagination"
)

const maxUploadBytes = 25 << 20

type createProjectRequest struct {
	ClientID    string `json:"client_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

func (s *Server) CreateProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	clientID, err := parseOptionalSnowflakeID(req.ClientID)
	if err != nil || clientID == 0 {
		AbortWithError(c, invalidIDError("client_id"))
		return
	}

	project, err := s.projectSvc.Create(c.Request.Context(), projectdomain.CreateRequest{
		TenantID:    tenantID(c),
		ClientID:    clientID,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		ActorID:     actorID(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": project})
}

func (s *Server) ListProjects(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	clientID, err := parseOptionalSnowflakeID(c.Query("client_id"))
	if err != nil {
		AbortWithError(c, invalidIDError("client_id"))
		return
	}

	resp, err := s.projectSvc.List(c.Request.Context(), projectdomain.ListRequest{
		Pagination: page,
		TenantID:   tenantID(c),
		Status:     c.Query("status"),
		ClientID:   clientID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Projects, "page_info": resp.PageInfo})
}

func (s *Server) GetProjectByID(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	project, err := s.projectSvc.GetByID(c.Request.Context(), tenantID(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": project})
}

// UpdateProjectStatus answers 502 when a fatal channel failed, still carrying
// the committed project.
func (s *Server) UpdateProjectStatus(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	project, err := s.projectSvc.UpdateStatus(c.Request.Context(), projectdomain.UpdateStatusRequest{
		TenantID:     tenantID(c),
		ProjectID:    id,
		Status:       req.Status,
		ActingUserID: actorID(c),
	})
	var fanErr *fanout.Error
	if errors.As(err, &fanErr) && project != nil {
		_ = c.Error(err)
		status, payload := mapError(err)
		c.JSON(status, gin.H{"error": payload, "data": project})
		return
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": project})
}

func (s *Server) DeleteProject(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.projectSvc.Delete(c.Request.Context(), tenantID(c), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) UploadProjectFile(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		AbortWithError(c, errs.NewValidation("file", "missing_file", "file is required"))
		return
	}
	if header.Size > maxUploadBytes {
		AbortWithError(c, errs.NewValidation("file", "file_too_large", "file exceeds upload limit"))
		return
	}
	src, err := header.Open()
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxUploadBytes))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	file, err := s.projectSvc.UploadFile(c.Request.Context(), projectdomain.UploadFileRequest{
		TenantID:    tenantID(c),
		ProjectID:   id,
		ActorID:     actorID(c),
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": file})
}

func (s *Server) ListProjectActivities(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if _, err := s.projectSvc.GetByID(c.Request.Context(), tenantID(c), id); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.activitySvc.List(c.Request.Context(), activitydomain.ListRequest{
		Pagination: page,
		TenantID:   tenantID(c),
		ProjectID:  id,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Activities, "page_info": resp.PageInfo})
}
