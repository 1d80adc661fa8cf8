package http

import (
	"io"
	"net/http"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/domain"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/service"
	"github.com/max950509/web-admin-fullstack-template/pkg/adminsdk"
	"github.com/max950509/web-admin-fullstack-template/pkg/httpx"
	"github.com/max950509/web-admin-fullstack-template/pkg/slogx"
)

// ExportTasksHandler serves background exports.
type ExportTasksHandler struct {
	Exports *service.ExportService
}

// HandleCreate handles POST /api/export-tasks
//
//	@Summary		Start an export
//	@Description	Creates a pending task and queues it. Poll the list until the status is success or failed.
//	@Tags			Export tasks
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		adminsdk.CreateExportTaskRequest	true	"Export type, format and filter"
//	@Success		201		{object}	adminsdk.ExportTaskResponse
//	@Failure		400		{object}	adminsdk.ErrorResponse	"Unknown type or format"
//	@Router			/api/export-tasks [post].
func (h *ExportTasksHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	var req adminsdk.CreateExportTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}

	kind := req.Type
	if kind == "" {
		kind = domain.ExportTypeAccount
	}
	task, err := h.Exports.CreateTask(r.Context(), p.User.ID, kind, domain.ExportFormat(req.Format), req.Params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toExportTaskResponse(task))
}

// HandleList handles GET /api/export-tasks
//
//	@Summary		List export tasks
//	@Description	Returns the caller's tasks; super admins see every task.
//	@Tags			Export tasks
//	@Security		BearerAuth
//	@Produce		json
//	@Param			status		query		string	false	"pending, running, success or failed"
//	@Param			page		query		int		false	"Page, from 1"
//	@Param			pageSize	query		int		false	"Page size, 1 to 100"
//	@Success		200			{object}	adminsdk.PageResponse[adminsdk.ExportTaskResponse]
//	@Router			/api/export-tasks [get].
func (h *ExportTasksHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	status := domain.ExportStatus(r.URL.Query().Get("status"))
	res, err := h.Exports.ListTasks(r.Context(), p.User, status, pageFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPage(res, toExportTaskResponse))
}

// HandleDownload handles GET /api/export-tasks/{id}/download
//
//	@Summary		Download an export
//	@Tags			Export tasks
//	@Security		BearerAuth
//	@Produce		octet-stream
//	@Param			id	path	int		true	"Task id"
//	@Success		200	{file}	file	"The exported sheet"
//	@Failure		400	{object}	adminsdk.ErrorResponse	"Task not finished"
//	@Failure		404	{object}	adminsdk.ErrorResponse	"No such task"
//	@Router			/api/export-tasks/{id}/download [get].
func (h *ExportTasksHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	task, f, err := h.Exports.Download(r.Context(), p.User, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer f.Close()

	size := int64(-1)
	if st, err := f.Stat(); err == nil {
		size = st.Size()
	}
	writeAttachment(w, task.FileName, service.ContentTypeFor(task.Format), size)
	if _, err := io.Copy(w, f); err != nil {
		slogx.FromContext(r.Context()).Warn("export download interrupted", "task_id", id, "err", err)
	}
}
