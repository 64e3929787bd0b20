package httpapi

import (
	"net/http"
	"strings"
	"time"

	"librix.org/internal/auth"
	"librix.org/internal/library"
)

type createBookRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Copies int    `json:"copies"`
}

type borrowRequest struct {
	BookID string `json:"book_id"`
}

type listBooksResponse struct {
	Items []library.Book `json:"items"`
	AsOf  time.Time      `json:"as_of"`
}

type listLoansResponse struct {
	Items []library.Loan `json:"items"`
	AsOf  time.Time      `json:"as_of"`
}

func (a *API) handleBooksCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listBooks(w, r)
	case http.MethodPost:
		a.addBook(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleBookResource(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/books/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	book, err := a.library.GetBook(r.Context(), id)
	if err != nil {
		handleLibraryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (a *API) handleLoansCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listLoans(w, r)
	case http.MethodPost:
		a.borrow(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleLoanResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/loans/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "return" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	a.returnLoan(w, r, parts[0])
}

func (a *API) listBooks(w http.ResponseWriter, r *http.Request) {
	books, err := a.library.ListBooks(r.Context())
	if err != nil {
		handleLibraryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listBooksResponse{
		Items: books,
		AsOf:  time.Now().UTC(),
	})
}

// addBook is stricter than the /books path rule: catalog writes are an
// administrative operation.
func (a *API) addBook(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}
	var req createBookRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	book, err := a.library.AddBook(r.Context(), req.Title, req.Author, req.Copies)
	if err != nil {
		handleLibraryError(w, r, err)
		return
	}
	w.Header().Set("Location", "/books/"+book.ID)
	writeJSON(w, http.StatusCreated, book)
}

func (a *API) borrow(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	var req borrowRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	loan, err := a.library.Borrow(r.Context(), strings.TrimSpace(req.BookID), id.UserID)
	if err != nil {
		handleLibraryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

// returnLoan lets admins close any loan; regular users only their own.
func (a *API) returnLoan(w http.ResponseWriter, r *http.Request, loanID string) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	borrower := id.UserID
	if id.Role == auth.RoleAdmin {
		borrower = ""
	}
	loan, err := a.library.Return(r.Context(), loanID, borrower)
	if err != nil {
		handleLibraryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

// listLoans scopes the result to the caller unless the caller is an admin.
func (a *API) listLoans(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	scope := id.UserID
	if id.Role == auth.RoleAdmin {
		scope = ""
		if v := strings.TrimSpace(r.URL.Query().Get("user_id")); v != "" {
			scope = v
		}
	}
	loans, err := a.library.ListLoans(r.Context(), scope)
	if err != nil {
		handleLibraryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listLoansResponse{
		Items: loans,
		AsOf:  time.Now().UTC(),
	})
}
