package http

import (
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/domain"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/service"
	"github.com/max950509/web-admin-fullstack-template/pkg/adminsdk"
	"github.com/max950509/web-admin-fullstack-template/pkg/httpx"
	"github.com/max950509/web-admin-fullstack-template/pkg/slogx"
)

// maxImportBytes bounds uploaded import sheets.
const maxImportBytes = 10 << 20

// UsersHandler serves account management under /api/users.
type UsersHandler struct {
	Users *service.UserService
}

// HandleCreate handles POST /api/users
//
//	@Summary		Create an account
//	@Tags			Accounts
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		adminsdk.CreateUserRequest	true	"Account"
//	@Success		201		{object}	adminsdk.UserResponse		"Created account"
//	@Failure		400		{object}	adminsdk.ErrorResponse		"Validation failed"
//	@Failure		403		{object}	adminsdk.ErrorResponse		"Missing create:account"
//	@Failure		409		{object}	adminsdk.ErrorResponse		"Username taken"
//	@Router			/api/users [post].
func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req adminsdk.CreateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}

	u, err := h.Users.CreateUser(r.Context(), service.CreateUserInput{
		Username:     req.Username,
		Password:     req.Password,
		RoleIDs:      req.RoleIDs,
		DepartmentID: req.DepartmentID,
		PositionID:   req.PositionID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toUserResponse(u))
}

// HandleList handles GET /api/users
//
//	@Summary		List accounts
//	@Tags			Accounts
//	@Security		BearerAuth
//	@Produce		json
//	@Param			username	query		string	false	"Username contains"
//	@Param			roleIds		query		string	false	"Comma separated role ids"
//	@Param			page		query		int		false	"Page, from 1"
//	@Param			pageSize	query		int		false	"Page size, 1 to 100"
//	@Success		200			{object}	adminsdk.PageResponse[adminsdk.UserResponse]
//	@Failure		400			{object}	adminsdk.ErrorResponse	"Bad filter"
//	@Failure		403			{object}	adminsdk.ErrorResponse	"Missing read:account"
//	@Router			/api/users [get].
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	roleIDs, ok := int64List(r.URL.Query().Get("roleIds"))
	if !ok {
		writeBadRequest(w, "roleIds must be a comma separated list of ids")
		return
	}

	res, err := h.Users.ListUsers(r.Context(), domain.UserFilter{
		Username: r.URL.Query().Get("username"),
		RoleIDs:  roleIDs,
	}, pageFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPage(res, toUserResponse))
}

// HandleGet handles GET /api/users/{id}
//
//	@Summary		Get an account
//	@Tags			Accounts
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		int	true	"Account id"
//	@Success		200	{object}	adminsdk.UserResponse
//	@Failure		404	{object}	adminsdk.ErrorResponse	"No such account"
//	@Router			/api/users/{id} [get].
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	u, err := h.Users.GetUserByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

// HandleUpdate handles PATCH /api/users/{id}
//
//	@Summary		Update an account
//	@Description	Omitted fields are left unchanged. roleIds replaces the whole role set. Changing the
//	@Description	password logs the account out everywhere.
//	@Tags			Accounts
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int							true	"Account id"
//	@Param			request	body		adminsdk.UpdateUserRequest	true	"Changes"
//	@Success		200		{object}	adminsdk.UserResponse
//	@Failure		400		{object}	adminsdk.ErrorResponse	"Validation failed"
//	@Failure		404		{object}	adminsdk.ErrorResponse	"No such account"
//	@Failure		409		{object}	adminsdk.ErrorResponse	"Username taken"
//	@Router			/api/users/{id} [patch].
func (h *UsersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req adminsdk.UpdateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}

	u, err := h.Users.UpdateUser(r.Context(), id, service.UpdateUserInput{
		Username:     req.Username,
		Password:     req.Password,
		RoleIDs:      req.RoleIDs,
		DepartmentID: req.DepartmentID,
		PositionID:   req.PositionID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

// HandleDelete handles DELETE /api/users/{id}
//
//	@Summary		Delete an account
//	@Tags			Accounts
//	@Security		BearerAuth
//	@Param			id	path	int	true	"Account id"
//	@Success		204	"Deleted"
//	@Failure		404	{object}	adminsdk.ErrorResponse	"No such account"
//	@Router			/api/users/{id} [delete].
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Users.DeleteUser(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleBatchDelete handles POST /api/users/batch-delete
//
//	@Summary		Delete several accounts
//	@Tags			Accounts
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	adminsdk.IDsRequest	true	"Account ids"
//	@Success		204		"Deleted"
//	@Failure		400		{object}	adminsdk.ErrorResponse	"No ids"
//	@Router			/api/users/batch-delete [post].
func (h *UsersHandler) HandleBatchDelete(w http.ResponseWriter, r *http.Request) {
	var req adminsdk.IDsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.Users.DeleteUsers(r.Context(), req.IDs...); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleTemplate handles GET /api/users/template
//
//	@Summary		Download the account import template
//	@Tags			Accounts
//	@Security		BearerAuth
//	@Produce		octet-stream
//	@Param			format	query	string	false	"csv (default) or xlsx"
//	@Success		200		{file}	file	"Empty sheet with the header row"
//	@Router			/api/users/template [get].
func (h *UsersHandler) HandleTemplate(w http.ResponseWriter, r *http.Request) {
	f, err := h.Users.Template(domain.ExportFormat(r.URL.Query().Get("format")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeAttachment(w, f.Name, f.ContentType, int64(len(f.Data)))
	_, _ = w.Write(f.Data)
}

// HandleImport handles POST /api/users/import
//
//	@Summary		Import accounts
//	@Description	Reads a CSV or XLSX sheet with username, password and roleNames columns. Rows are processed
//	@Description	independently; failures are reported per row. mode=upsert updates existing usernames.
//	@Tags			Accounts
//	@Security		BearerAuth
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Sheet"
//	@Param			mode	query		string	false	"insert (default) or upsert"
//	@Success		200		{object}	adminsdk.ImportResponse
//	@Failure		400		{object}	adminsdk.ErrorResponse	"Missing or unreadable file"
//	@Router			/api/users/import [post].
func (h *UsersHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		writeBadRequest(w, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeBadRequest(w, "file could not be read")
		return
	}

	res, err := h.Users.ImportUsers(r.Context(), data, service.ImportMode(r.URL.Query().Get("mode")))
	if err != nil {
		writeError(w, r, err)
		return
	}

	slogx.FromContext(r.Context()).Info("accounts imported",
		"success", res.SuccessCount,
		"failed", res.FailCount,
	)
	httpx.WriteJSON(w, http.StatusOK, adminsdk.ImportResponse{
		SuccessCount: res.SuccessCount,
		FailCount:    res.FailCount,
		Errors: mapSlice(res.Errors, func(e service.ImportError) adminsdk.ImportErrorResponse {
			return adminsdk.ImportErrorResponse{Row: e.Row, Message: e.Message}
		}),
	})
}

// writeAttachment sets the download headers. size < 0 leaves Content-Length unset.
func writeAttachment(w http.ResponseWriter, name, contentType string, size int64) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	if size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	httpx.NoCache(w)
	w.WriteHeader(http.StatusOK)
}
