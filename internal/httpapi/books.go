package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/ErickPolzin/Crud/internal/catalog"
	"github.com/go-chi/chi/v5"
)

// handleListBooks handles GET /api/books?page&limit.
func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	// Non-numeric values fall back to the defaults.
	page, _ := strconv.Atoi(query.Get("page"))
	limit, _ := strconv.Atoi(query.Get("limit"))

	result, err := s.service.List(r.Context(), page, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetBook handles GET /api/books/{id}.
func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(r)
	if !ok {
		s.writeError(w, r, catalog.ErrNotFound)
		return
	}

	book, err := s.service.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, book)
}

// handleCreateBook handles POST /api/books.
func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var in catalog.Input
	if !s.decodeInput(w, r, &in) {
		return
	}

	book, err := s.service.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/books/%d", book.ID))
	writeJSON(w, http.StatusCreated, book)
}

// handleUpdateBook handles PUT /api/books/{id}.
func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	var in catalog.Input
	if !s.decodeInput(w, r, &in) {
		return
	}

	// An unusable id becomes 0 so the payload is still validated first.
	id, _ := bookID(r)

	book, err := s.service.Update(r.Context(), id, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, book)
}

// handleDeleteBook handles DELETE /api/books/{id}.
func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(r)
	if !ok {
		s.writeError(w, r, catalog.ErrNotFound)
		return
	}

	if err := s.service.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Book deleted successfully"})
}

// bookID parses the {id} path parameter. Anything that is not a positive
// integer cannot name a stored book.
func bookID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// decodeInput reads a single JSON object into in, writing a 400 (or 413)
// response and returning false when the body is unusable. Field level
// decoding failures are reported like validation failures.
func (s *Server) decodeInput(w http.ResponseWriter, r *http.Request, in *catalog.Input) bool {
	dec := json.NewDecoder(r.Body)
	err := dec.Decode(in)
	if err == nil {
		if dec.More() {
			writeValidation(w, http.StatusBadRequest, "", "request body must contain a single JSON object")
			return false
		}
		return true
	}

	var (
		syntaxErr   *json.SyntaxError
		typeErr     *json.UnmarshalTypeError
		maxBytesErr *http.MaxBytesError
		fieldErr    *catalog.Error
	)
	switch {
	case errors.As(err, &fieldErr):
		s.writeError(w, r, err)
	case errors.Is(err, io.EOF):
		writeValidation(w, http.StatusBadRequest, "", "request body must not be empty")
	case errors.As(err, &maxBytesErr):
		writeValidation(w, http.StatusRequestEntityTooLarge, "", fmt.Sprintf("request body must not exceed %d bytes", maxBytesErr.Limit))
	case errors.As(err, &typeErr):
		if typeErr.Field == "" {
			writeValidation(w, http.StatusBadRequest, "", "request body must be a JSON object")
		} else {
			writeValidation(w, http.StatusBadRequest, typeErr.Field, fmt.Sprintf("%s must be a %s", typeErr.Field, jsonTypeName(typeErr.Type.Kind().String())))
		}
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		writeValidation(w, http.StatusBadRequest, "", "request body must be valid JSON")
	default:
		writeValidation(w, http.StatusBadRequest, "", "request body could not be decoded")
	}
	return false
}

func jsonTypeName(goKind string) string {
	switch goKind {
	case "string":
		return "string"
	default:
		return "valid " + goKind
	}
}
