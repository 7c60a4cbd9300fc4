package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxUploadBytes bounds spreadsheet and backup uploads.
const maxUploadBytes = 32 << 20

// NewRouter wires every route onto a fresh gin engine.
func NewRouter(h *Handler, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = maxUploadBytes
	r.Use(gin.Recovery())
	r.Use(requestLogger(log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		books := api.Group("/books")
		{
			books.GET("", h.ListBooks)
			books.POST("", h.AddBook)
			books.POST("/bulk", h.AddBooks)
			books.POST("/import", h.ImportBooks)
			books.GET("/:id", h.GetBook)
			books.PUT("/:id", h.UpdateBook)
			books.DELETE("/:id", h.DeleteBook)
		}

		users := api.Group("/users")
		{
			users.GET("", h.ListUsers)
			users.POST("", h.AddUser)
			users.POST("/bulk", h.AddUsers)
			users.POST("/import", h.ImportUsers)
			users.GET("/:id", h.GetUser)
			users.PUT("/:id", h.UpdateUser)
			users.DELETE("/:id", h.DeleteUser)
			users.POST("/:id/password", h.ResetPassword)
		}
		api.POST("/login", h.Login)

		loans := api.Group("/loans")
		{
			loans.GET("", h.ListLoans)
			loans.POST("", h.IssueBook)
			loans.GET("/:id", h.GetLoan)
			loans.POST("/:id/return", h.ReturnBook)
		}

		specs := api.Group("/specializations")
		{
			specs.GET("", h.ListSpecializations)
			specs.POST("", h.AddSpecializations)
			specs.PUT("/:name", h.RenameSpecialization)
			specs.DELETE("/:name", h.DeleteSpecialization)
		}

		api.GET("/settings", h.GetSettings)
		api.PUT("/settings", h.UpdateSettings)
		api.GET("/backup", h.Backup)
		api.POST("/restore", h.Restore)
		api.GET("/notifications", h.Notifications)
		api.GET("/stats", h.Stats)
	}
	return r
}
