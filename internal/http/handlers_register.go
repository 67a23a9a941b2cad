package http

import (
	"net/http"

	"apartment/internal/core"
	"apartment/internal/log"
)

var errMissingYear = core.NewValidationError("year", "is required")

type registerRequest struct {
	Year *int `json:"year"`
}

func (req registerRequest) year() (int, error) {
	if req.Year == nil {
		return 0, errMissingYear
	}
	return *req.Year, nil
}

func (s *Server) handleListRegisters(w http.ResponseWriter, r *http.Request) {
	regs, err := s.registers.List(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Body(regs).Write(w)
}

func (s *Server) handleGetRegister(w http.ResponseWriter, r *http.Request) {
	id, err := PathUUID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	reg, err := s.registers.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(reg).Write(w)
}

func (s *Server) handleCreateRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	year, err := req.year()
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	reg, err := s.registers.Create(r.Context(), year)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/registers/"+reg.ID.String()).
		Body(reg).
		Write(w)
}

func (s *Server) handleUpdateRegister(w http.ResponseWriter, r *http.Request) {
	id, err := PathUUID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	var req registerRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	year, err := req.year()
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	reg, err := s.registers.UpdateYear(r.Context(), id, year)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(reg).Write(w)
}

func (s *Server) handleDeleteRegister(w http.ResponseWriter, r *http.Request) {
	id, err := PathUUID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	if err := s.registers.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
