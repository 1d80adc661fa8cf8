package http

import (
	"net/http"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/domain"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/service"
	"github.com/max950509/web-admin-fullstack-template/pkg/adminsdk"
	"github.com/max950509/web-admin-fullstack-template/pkg/httpx"
)

// DepartmentsHandler serves /api/departments.
type DepartmentsHandler struct {
	Departments *service.DepartmentService
}

func departmentFromRequest(id int64, req adminsdk.DepartmentRequest) domain.Department {
	return domain.Department{ID: id, Name: req.Name, ParentID: req.ParentID, Sort: req.Sort}
}

// HandleCreate handles POST /api/departments
//
//	@Summary		Create a department
//	@Tags			Departments
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		adminsdk.DepartmentRequest	true	"Department"
//	@Success		201		{object}	adminsdk.DepartmentResponse
//	@Failure		400		{object}	adminsdk.ErrorResponse	"Validation failed"
//	@Failure		404		{object}	adminsdk.ErrorResponse	"Parent does not exist"
//	@Router			/api/departments [post].
func (h *DepartmentsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req adminsdk.DepartmentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	d, err := h.Departments.CreateDepartment(r.Context(), departmentFromRequest(0, req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toDepartmentResponse(&d))
}

// HandleTree handles GET /api/departments
//
//	@Summary		Department tree
//	@Description	With name set, only matching departments are returned; their missing ancestors make them roots.
//	@Tags			Departments
//	@Security		BearerAuth
//	@Produce		json
//	@Param			name	query	string	false	"Name contains"
//	@Success		200		{array}	adminsdk.DepartmentResponse
//	@Router			/api/departments [get].
func (h *DepartmentsHandler) HandleTree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.Departments.DepartmentTree(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mapSlice(tree, toDepartmentResponse))
}

// HandleOptions handles GET /api/departments/options
//
//	@Summary		Department tree for select boxes
//	@Tags			Departments
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}	adminsdk.DepartmentResponse
//	@Router			/api/departments/options [get].
func (h *DepartmentsHandler) HandleOptions(w http.ResponseWriter, r *http.Request) {
	tree, err := h.Departments.DepartmentTree(r.Context(), "")
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mapSlice(tree, toDepartmentResponse))
}

// HandleGet handles GET /api/departments/{id}
//
//	@Summary		Get a department
//	@Tags			Departments
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		int	true	"Department id"
//	@Success		200	{object}	adminsdk.DepartmentResponse
//	@Failure		404	{object}	adminsdk.ErrorResponse	"No such department"
//	@Router			/api/departments/{id} [get].
func (h *DepartmentsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d, err := h.Departments.GetDepartment(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toDepartmentResponse(&d))
}

// HandleUpdate handles PATCH /api/departments/{id}
//
//	@Summary		Replace a department
//	@Description	A department cannot become its own parent or move under one of its descendants.
//	@Tags			Departments
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int							true	"Department id"
//	@Param			request	body		adminsdk.DepartmentRequest	true	"Department"
//	@Success		200		{object}	adminsdk.DepartmentResponse
//	@Failure		400		{object}	adminsdk.ErrorResponse	"Validation failed"
//	@Failure		404		{object}	adminsdk.ErrorResponse	"No such department"
//	@Router			/api/departments/{id} [patch].
func (h *DepartmentsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req adminsdk.DepartmentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	d, err := h.Departments.UpdateDepartment(r.Context(), departmentFromRequest(id, req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toDepartmentResponse(&d))
}

// HandleDelete handles DELETE /api/departments/{id}
//
//	@Summary		Delete a department
//	@Description	Blocked while child departments, positions or accounts reference it.
//	@Tags			Departments
//	@Security		BearerAuth
//	@Param			id	path	int	true	"Department id"
//	@Success		204	"Deleted"
//	@Failure		400	{object}	adminsdk.ErrorResponse	"Still referenced"
//	@Failure		404	{object}	adminsdk.ErrorResponse	"No such department"
//	@Router			/api/departments/{id} [delete].
func (h *DepartmentsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Departments.DeleteDepartment(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PositionsHandler serves /api/positions.
type PositionsHandler struct {
	Positions *service.PositionService
}

func positionFromRequest(id int64, req adminsdk.PositionRequest) domain.Position {
	return domain.Position{ID: id, Name: req.Name, DepartmentID: req.DepartmentID, Sort: req.Sort}
}

// HandleCreate handles POST /api/positions
//
//	@Summary		Create a position
//	@Tags			Positions
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		adminsdk.PositionRequest	true	"Position"
//	@Success		201		{object}	adminsdk.PositionResponse
//	@Failure		400		{object}	adminsdk.ErrorResponse	"Validation failed"
//	@Router			/api/positions [post].
func (h *PositionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req adminsdk.PositionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := h.Positions.CreatePosition(r.Context(), positionFromRequest(0, req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toPositionResponse(p))
}

// HandleList handles GET /api/positions
//
//	@Summary		List positions
//	@Tags			Positions
//	@Security		BearerAuth
//	@Produce		json
//	@Param			name			query		string	false	"Name contains"
//	@Param			departmentId	query		int		false	"Department"
//	@Param			page			query		int		false	"Page, from 1"
//	@Param			pageSize		query		int		false	"Page size, 1 to 100"
//	@Success		200				{object}	adminsdk.PageResponse[adminsdk.PositionResponse]
//	@Router			/api/positions [get].
func (h *PositionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	deptID, ok := optionalInt64(r, "departmentId")
	if !ok {
		writeBadRequest(w, "departmentId must be an integer")
		return
	}
	res, err := h.Positions.ListPositions(r.Context(), domain.PositionFilter{
		Name:         r.URL.Query().Get("name"),
		DepartmentID: deptID,
	}, pageFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPage(res, toPositionResponse))
}

// HandleOptions handles GET /api/positions/options
//
//	@Summary		Positions for select boxes
//	@Tags			Positions
//	@Security		BearerAuth
//	@Produce		json
//	@Param			departmentId	query	int	false	"Only positions of this department"
//	@Success		200				{array}	adminsdk.OptionResponse
//	@Router			/api/positions/options [get].
func (h *PositionsHandler) HandleOptions(w http.ResponseWriter, r *http.Request) {
	deptID, ok := optionalInt64(r, "departmentId")
	if !ok {
		writeBadRequest(w, "departmentId must be an integer")
		return
	}
	list, err := h.Positions.PositionOptions(r.Context(), deptID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mapSlice(list, func(p domain.Position) adminsdk.OptionResponse {
		return adminsdk.OptionResponse{ID: p.ID, Name: p.Name}
	}))
}

// HandleGet handles GET /api/positions/{id}
//
//	@Summary		Get a position
//	@Tags			Positions
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		int	true	"Position id"
//	@Success		200	{object}	adminsdk.PositionResponse
//	@Failure		404	{object}	adminsdk.ErrorResponse	"No such position"
//	@Router			/api/positions/{id} [get].
func (h *PositionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.Positions.GetPosition(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPositionResponse(p))
}

// HandleUpdate handles PATCH /api/positions/{id}
//
//	@Summary		Replace a position
//	@Tags			Positions
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int							true	"Position id"
//	@Param			request	body		adminsdk.PositionRequest	true	"Position"
//	@Success		200		{object}	adminsdk.PositionResponse
//	@Failure		404		{object}	adminsdk.ErrorResponse	"No such position"
//	@Router			/api/positions/{id} [patch].
func (h *PositionsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req adminsdk.PositionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := h.Positions.UpdatePosition(r.Context(), positionFromRequest(id, req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPositionResponse(p))
}

// HandleDelete handles DELETE /api/positions/{id}
//
//	@Summary		Delete a position
//	@Description	Blocked while accounts reference it.
//	@Tags			Positions
//	@Security		BearerAuth
//	@Param			id	path	int	true	"Position id"
//	@Success		204	"Deleted"
//	@Failure		400	{object}	adminsdk.ErrorResponse	"Still referenced"
//	@Router			/api/positions/{id} [delete].
func (h *PositionsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Positions.DeletePosition(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
