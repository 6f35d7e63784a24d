package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Vinodvinum/LibraryManagement/internal/auth"
	"github.com/Vinodvinum/LibraryManagement/internal/models"
	"github.com/Vinodvinum/LibraryManagement/internal/services"
)

type LibraryHandler struct {
	svc      services.LibraryService
	verifier auth.CredentialVerifier
	sessions SessionStore
	logger   *zap.Logger
}

func RegisterRoutes(r *gin.Engine, svc services.LibraryService, verifier auth.CredentialVerifier, sessions SessionStore, logger *zap.Logger) {
	h := &LibraryHandler{svc: svc, verifier: verifier, sessions: sessions, logger: logger}

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.POST("/auth/login", h.login)
	r.POST("/auth/logout", h.logout)

	authMW := AuthRequired(sessions, logger)

	// Any signed-in role
	user := r.Group("", authMW)
	{
		user.GET("/auth/whoami", h.whoami)

		user.GET("/books", h.listBooks) // ?title=&author= switches to search
		user.GET("/books/search", h.searchBooks)
		user.GET("/books/:id", h.getBook)
		user.POST("/books/:id/borrow", h.borrowBook)
		user.POST("/books/:id/return", h.returnBook)
	}

	// Admin only
	admin := r.Group("", authMW, AdminOnly())
	{
		admin.POST("/books", h.addBook)
		admin.DELETE("/books/:id", h.removeBook)

		admin.POST("/patrons", h.addPatron)
		admin.GET("/patrons", h.listPatrons)
		admin.GET("/patrons/:id/loans", h.listPatronLoans)

		admin.GET("/loans", h.listTransactions)
		admin.GET("/reports/overdue", h.overdueReport)
	}
}

type addBookRequest struct {
	Title         string `json:"title" binding:"required"`
	Author        string `json:"author" binding:"required"`
	ISBN          string `json:"isbn"`
	ShelfLocation string `json:"shelf_location"`
	Quantity      int    `json:"quantity" binding:"required,min=1"`
	// CoverImage is base64 in JSON.
	CoverImage []byte `json:"cover_image"`
}

func (h *LibraryHandler) addBook(c *gin.Context) {
	var req addBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	book, err := h.svc.AddBook(c.Request.Context(), services.NewBook{
		Title:         req.Title,
		Author:        req.Author,
		ISBN:          req.ISBN,
		ShelfLocation: req.ShelfLocation,
		Quantity:      req.Quantity,
		CoverImage:    req.CoverImage,
	})
	if err != nil {
		h.fail(c, "addBook", err)
		return
	}
	c.JSON(http.StatusCreated, book)
}

func (h *LibraryHandler) listBooks(c *gin.Context) {
	title, author := c.Query("title"), c.Query("author")

	var (
		books []models.Book
		err   error
	)
	if title != "" || author != "" {
		books, err = h.svc.SearchBooks(c.Request.Context(), title, author)
	} else {
		books, err = h.svc.ListBooks(c.Request.Context())
	}
	if err != nil {
		h.fail(c, "listBooks", err)
		return
	}
	c.JSON(http.StatusOK, books)
}

func (h *LibraryHandler) searchBooks(c *gin.Context) {
	books, err := h.svc.SearchBooks(c.Request.Context(), c.Query("title"), c.Query("author"))
	if err != nil {
		h.fail(c, "searchBooks", err)
		return
	}
	c.JSON(http.StatusOK, books)
}

func (h *LibraryHandler) getBook(c *gin.Context) {
	bookID, ok := parseID(c, "invalid book id")
	if !ok {
		return
	}
	book, err := h.svc.GetBook(c.Request.Context(), bookID)
	if err != nil {
		h.fail(c, "getBook", err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (h *LibraryHandler) removeBook(c *gin.Context) {
	bookID, ok := parseID(c, "invalid book id")
	if !ok {
		return
	}
	if err := h.svc.RemoveBook(c.Request.Context(), bookID); err != nil {
		h.fail(c, "removeBook", err)
		return
	}
	c.Status(http.StatusNoContent)
}

type loanRequest struct {
	PatronName string `json:"patron_name" binding:"required"`
	Category   string `json:"category" binding:"omitempty,oneof=student staff"`
}

func (h *LibraryHandler) borrowBook(c *gin.Context) {
	bookID, ok := parseID(c, "invalid book id")
	if !ok {
		return
	}
	var req loanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	loan, err := h.svc.Borrow(c.Request.Context(), bookID, req.PatronName, models.PatronCategory(req.Category))
	if err != nil {
		h.fail(c, "borrowBook", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"loan":     loan,
		"due_date": services.DueDate(loan.BorrowDate),
	})
}

func (h *LibraryHandler) returnBook(c *gin.Context) {
	bookID, ok := parseID(c, "invalid book id")
	if !ok {
		return
	}
	var req loanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	loan, err := h.svc.ReturnBook(c.Request.Context(), bookID, req.PatronName, models.PatronCategory(req.Category))
	if err != nil {
		h.fail(c, "returnBook", err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

type addPatronRequest struct {
	Name     string `json:"name" binding:"required"`
	Category string `json:"category" binding:"required,oneof=student staff"`
}

func (h *LibraryHandler) addPatron(c *gin.Context) {
	var req addPatronRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	patron, err := h.svc.AddPatron(c.Request.Context(), req.Name, models.PatronCategory(req.Category))
	if err != nil {
		h.fail(c, "addPatron", err)
		return
	}
	c.JSON(http.StatusCreated, patron)
}

func (h *LibraryHandler) listPatrons(c *gin.Context) {
	patrons, err := h.svc.ListPatrons(c.Request.Context())
	if err != nil {
		h.fail(c, "listPatrons", err)
		return
	}
	c.JSON(http.StatusOK, patrons)
}

func (h *LibraryHandler) listPatronLoans(c *gin.Context) {
	patronID, ok := parseID(c, "invalid patron id")
	if !ok {
		return
	}
	records, err := h.svc.ListPatronLoans(c.Request.Context(), patronID)
	if err != nil {
		h.fail(c, "listPatronLoans", err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *LibraryHandler) listTransactions(c *gin.Context) {
	records, err := h.svc.ListTransactions(c.Request.Context())
	if err != nil {
		h.fail(c, "listTransactions", err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *LibraryHandler) overdueReport(c *gin.Context) {
	records, err := h.svc.OverdueReport(c.Request.Context())
	if err != nil {
		h.fail(c, "overdueReport", err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func parseID(c *gin.Context, msg string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return uuid.Nil, false
	}
	return id, true
}

// fail writes the response for a ledger error. Domain errors are shown to the
// caller; anything else is logged and hidden behind a 500.
func (h *LibraryHandler) fail(c *gin.Context, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("op", op), zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrBookNotFound), errors.Is(err, services.ErrPatronNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrBookUnavailable),
		errors.Is(err, services.ErrNoOpenLoan),
		errors.Is(err, services.ErrLoanAlreadyOpen),
		errors.Is(err, services.ErrAmbiguousPatron):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidBook), errors.Is(err, services.ErrInvalidPatron):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
