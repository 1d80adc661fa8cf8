package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/domain"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/service"
	"github.com/max950509/web-admin-fullstack-template/pkg/httpx"
)

// OperationLogsHandler serves the audit trail.
type OperationLogsHandler struct {
	OperationLogs *service.OperationLogService
}

// logFilter reads the shared listing filters. It writes a 400 and returns
// false on malformed input.
func logFilter(w http.ResponseWriter, r *http.Request) (domain.OperationLogFilter, bool) {
	q := r.URL.Query()
	f := domain.OperationLogFilter{
		Username: strings.TrimSpace(q.Get("username")),
		Action:   strings.TrimSpace(q.Get("action")),
		Resource: strings.TrimSpace(q.Get("resource")),
		Method:   strings.ToUpper(strings.TrimSpace(q.Get("method"))),
	}

	if raw := q.Get("statusCode"); raw != "" {
		code, err := strconv.Atoi(raw)
		if err != nil {
			writeBadRequest(w, "statusCode must be an integer")
			return f, false
		}
		f.StatusCode = code
	}

	var ok bool
	if f.Start, ok = timeParam(q.Get("startTime"), false); !ok {
		writeBadRequest(w, "startTime must be RFC 3339 or YYYY-MM-DD")
		return f, false
	}
	if f.End, ok = timeParam(q.Get("endTime"), true); !ok {
		writeBadRequest(w, "endTime must be RFC 3339 or YYYY-MM-DD")
		return f, false
	}
	return f, true
}

// HandleList handles GET /api/operation-logs
//
//	@Summary		List operation logs
//	@Description	Newest first. Sensitive request fields are masked in payload.
//	@Tags			Operation logs
//	@Security		BearerAuth
//	@Produce		json
//	@Param			username	query		string	false	"Username contains"
//	@Param			action		query		string	false	"Action"
//	@Param			resource	query		string	false	"Resource"
//	@Param			method		query		string	false	"HTTP method"
//	@Param			statusCode	query		int		false	"Response status"
//	@Param			startTime	query		string	false	"From (RFC 3339 or date)"
//	@Param			endTime		query		string	false	"To (RFC 3339 or date, inclusive)"
//	@Param			page		query		int		false	"Page, from 1"
//	@Param			pageSize	query		int		false	"Page size, 1 to 100"
//	@Success		200			{object}	adminsdk.PageResponse[adminsdk.OperationLogResponse]
//	@Failure		400			{object}	adminsdk.ErrorResponse	"Bad filter"
//	@Router			/api/operation-logs [get].
func (h *OperationLogsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	f, ok := logFilter(w, r)
	if !ok {
		return
	}
	res, err := h.OperationLogs.ListOperationLogs(r.Context(), f, pageFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPage(res, toOperationLogResponse))
}

// HandleListMine handles GET /api/operation-logs/me
//
//	@Summary		List my operation logs
//	@Tags			Operation logs
//	@Security		BearerAuth
//	@Produce		json
//	@Param			action		query		string	false	"Action"
//	@Param			resource	query		string	false	"Resource"
//	@Param			page		query		int		false	"Page, from 1"
//	@Param			pageSize	query		int		false	"Page size, 1 to 100"
//	@Success		200			{object}	adminsdk.PageResponse[adminsdk.OperationLogResponse]
//	@Router			/api/operation-logs/me [get].
func (h *OperationLogsHandler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	f, ok := logFilter(w, r)
	if !ok {
		return
	}
	res, err := h.OperationLogs.ListOwnOperationLogs(r.Context(), p.User.ID, f, pageFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPage(res, toOperationLogResponse))
}
