package http

import (
	"net/http"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/service"
	"github.com/max950509/web-admin-fullstack-template/pkg/adminsdk"
	"github.com/max950509/web-admin-fullstack-template/pkg/httpx"
)

// RolesHandler serves /api/roles.
type RolesHandler struct {
	Roles *service.RoleService
}

// HandleCreate handles POST /api/roles
//
//	@Summary		Create a role
//	@Description	A role named exactly "admin" bypasses every permission check.
//	@Tags			Roles
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		adminsdk.CreateRoleRequest	true	"Role"
//	@Success		201		{object}	adminsdk.RoleResponse
//	@Failure		400		{object}	adminsdk.ErrorResponse	"Validation failed"
//	@Failure		409		{object}	adminsdk.ErrorResponse	"Name taken"
//	@Router			/api/roles [post].
func (h *RolesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req adminsdk.CreateRoleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	role, err := h.Roles.CreateRole(r.Context(), service.RoleInput{
		Name:          req.Name,
		PermissionIDs: req.PermissionIDs,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toRoleResponse(role))
}

// HandleList handles GET /api/roles
//
//	@Summary		List roles
//	@Tags			Roles
//	@Security		BearerAuth
//	@Produce		json
//	@Param			name		query		string	false	"Name contains"
//	@Param			page		query		int		false	"Page, from 1"
//	@Param			pageSize	query		int		false	"Page size, 1 to 100"
//	@Success		200			{object}	adminsdk.PageResponse[adminsdk.RoleResponse]
//	@Router			/api/roles [get].
func (h *RolesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	res, err := h.Roles.ListRoles(r.Context(), r.URL.Query().Get("name"), pageFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPage(res, toRoleResponse))
}

// HandleGet handles GET /api/roles/{id}
//
//	@Summary		Get a role with its permissions
//	@Tags			Roles
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		int	true	"Role id"
//	@Success		200	{object}	adminsdk.RoleResponse
//	@Failure		404	{object}	adminsdk.ErrorResponse	"No such role"
//	@Router			/api/roles/{id} [get].
func (h *RolesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	role, err := h.Roles.GetRole(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toRoleResponse(role))
}

// HandleUpdate handles PATCH /api/roles/{id}
//
//	@Summary		Update a role
//	@Description	Renaming a role recomputes whether it is the super admin role.
//	@Tags			Roles
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int							true	"Role id"
//	@Param			request	body		adminsdk.UpdateRoleRequest	true	"Changes"
//	@Success		200		{object}	adminsdk.RoleResponse
//	@Failure		404		{object}	adminsdk.ErrorResponse	"No such role"
//	@Failure		409		{object}	adminsdk.ErrorResponse	"Name taken"
//	@Router			/api/roles/{id} [patch].
func (h *RolesHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req adminsdk.UpdateRoleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	role, err := h.Roles.UpdateRole(r.Context(), id, req.Name, req.PermissionIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toRoleResponse(role))
}

// HandleDelete handles DELETE /api/roles/{id}
//
//	@Summary		Delete a role
//	@Tags			Roles
//	@Security		BearerAuth
//	@Param			id	path	int	true	"Role id"
//	@Success		204	"Deleted"
//	@Failure		404	{object}	adminsdk.ErrorResponse	"No such role"
//	@Router			/api/roles/{id} [delete].
func (h *RolesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Roles.DeleteRole(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
