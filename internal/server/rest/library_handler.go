package rest

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/logging"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/services"
)

// maxImportSize bounds a StoryGraph upload.
const maxImportSize = 10 << 20

// LibraryHandler serves /books and /users-books.
type LibraryHandler struct {
	library  *services.LibraryService
	imports  *services.ImportService
	validate *validator.Validate
	logger   logging.Logger
}

func NewLibraryHandler(library *services.LibraryService, imports *services.ImportService, logger logging.Logger) *LibraryHandler {
	return &LibraryHandler{library: library, imports: imports, validate: validator.New(), logger: logger}
}

func (h *LibraryHandler) AddBook(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title     string   `json:"title" validate:"required,max=512"`
		ISBN      string   `json:"isbn" validate:"required,max=32"`
		QuickLink string   `json:"quickLink" validate:"required,max=2048"`
		Tags      []string `json:"tags" validate:"omitempty,dive,required,max=64"`
	}
	if err := decodeJSON(w, r, h.validate, &body); err != nil {
		writeErr(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	u := UserFromContext(r.Context())
	book, err := h.library.AddBook(r.Context(), services.BookInput{
		Title:     body.Title,
		ISBN:      body.ISBN,
		QuickLink: body.QuickLink,
		Tags:      body.Tags,
	}, u.ID)
	if err != nil {
		writeServiceErr(w, r, h.logger, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *LibraryHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.library.GetBookByISBN(r.Context(), chi.URLParam(r, "isbn"))
	if err != nil {
		writeServiceErr(w, r, h.logger, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// ImportStoryGraph accepts a multipart upload in the "file" field.
func (h *LibraryHandler) ImportStoryGraph(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)
	file, _, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErr(w, http.StatusRequestEntityTooLarge, ErrCodeInvalidRequest, "file too large")
			return
		}
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "no file uploaded")
		return
	}
	defer file.Close()

	u := UserFromContext(r.Context())
	parts, err := h.imports.ImportStoryGraph(r.Context(), u.ID, file)
	if err != nil {
		writeServiceErr(w, r, h.logger, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"parts": parts})
}

func (h *LibraryHandler) ListUserBooks(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	list, err := h.library.ListUserBooks(r.Context(), userID)
	if err != nil {
		writeServiceErr(w, r, h.logger, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *LibraryHandler) GetUserBook(w http.ResponseWriter, r *http.Request) {
	userID, bookID, ok := h.ids(w, r)
	if !ok {
		return
	}
	ub, err := h.library.GetUserBook(r.Context(), userID, bookID)
	if err != nil {
		writeServiceErr(w, r, h.logger, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, ub)
}

func (h *LibraryHandler) AddUserBook(w http.ResponseWriter, r *http.Request) {
	h.saveUserBook(w, r, false)
}

// UpdateUserBook answers 412 for invalid input.
func (h *LibraryHandler) UpdateUserBook(w http.ResponseWriter, r *http.Request) {
	h.saveUserBook(w, r, true)
}

func (h *LibraryHandler) saveUserBook(w http.ResponseWriter, r *http.Request, update bool) {
	userID, bookID, ok := h.ids(w, r)
	if !ok {
		return
	}
	validationStatus := http.StatusBadRequest
	if update {
		validationStatus = http.StatusPreconditionFailed
	}

	var body struct {
		UserRating   *int    `json:"userRating" validate:"omitempty,min=1,max=10"`
		DateStarted  *date   `json:"dateStarted"`
		DateFinished *date   `json:"dateFinished"`
		UserNotes    *string `json:"userNotes"`
	}
	if err := decodeJSON(w, r, h.validate, &body); err != nil && !errors.Is(err, errEmptyBody) {
		writeErr(w, validationStatus, ErrCodeValidation, err.Error())
		return
	}
	in := services.UserBookInput{
		UserRating:   body.UserRating,
		DateStarted:  body.DateStarted.ptr(),
		DateFinished: body.DateFinished.ptr(),
		UserNotes:    body.UserNotes,
	}

	var (
		ub  any
		err error
	)
	if update {
		ub, err = h.library.UpdateUserBook(r.Context(), userID, bookID, in)
	} else {
		ub, err = h.library.AddUserBook(r.Context(), userID, bookID, in)
	}
	if err != nil {
		if !update && errors.Is(err, common.ErrorNotFound) {
			writeErr(w, http.StatusNotFound, ErrCodeNotFound, "book does not exist")
			return
		}
		writeServiceErr(w, r, h.logger, err, validationStatus)
		return
	}
	writeJSON(w, http.StatusOK, ub)
}

func (h *LibraryHandler) RemoveUserBook(w http.ResponseWriter, r *http.Request) {
	userID, bookID, ok := h.ids(w, r)
	if !ok {
		return
	}
	if err := h.library.RemoveUserBook(r.Context(), userID, bookID); err != nil {
		writeServiceErr(w, r, h.logger, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Book deleted"})
}

func (h *LibraryHandler) ids(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return 0, 0, false
	}
	bookID, err := pathID(r, "bookId")
	if err != nil {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return 0, 0, false
	}
	return userID, bookID, true
}
