package web

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/belfry-bio/belfry/internal/ghimport"
	"github.com/belfry-bio/belfry/internal/models"
	"github.com/belfry-bio/belfry/internal/networks"
	"github.com/belfry-bio/belfry/internal/omics"
	"github.com/belfry-bio/belfry/internal/queries"
	"github.com/belfry-bio/belfry/internal/reports"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// registerRoutes sets up all pages and API routes on the Gin router.
func registerRoutes(router *gin.Engine, opts StartOpts) {
	db := opts.DB

	// Embedded static assets.
	staticFS, _ := fs.Sub(assetsFS, "assets")
	router.StaticFS("/static", http.FS(staticFS))

	// Pages.
	router.GET("/", handleIndex(db, opts.StalledAfter))
	router.GET("/reports", handleReportsPage(db, opts.StalledAfter))
	router.GET("/networks", handleNetworksPage(db))
	router.GET("/networks/:id", handleNetworkDetailPage(db))

	// API.
	api := router.Group("/api")
	{
		api.GET("/reports/:id", handleGetReport(db, opts.StalledAfter))
		api.GET("/networks", handleListNetworks(db))
		api.GET("/networks/:id", handleGetNetwork(db))
		api.GET("/networks/:id/export", handleExportNetwork(db))
		api.GET("/edges/:id/votes", handleEdgeTally(db))
		api.GET("/projects", handleListProjects(db))

		authed := api.Group("", requireUser(db))
		{
			authed.POST("/reports", handleCreateReport(db))
			authed.GET("/reports", handleListReports(db, opts.StalledAfter))
			authed.POST("/edges/:id/vote", handleVote(db))
			authed.POST("/queries", handleCreateQuery(db))
			authed.GET("/queries", handleListQueries(db))
			authed.GET("/queries/:id", handleGetQuery(db))
			authed.GET("/queries/:id/run", handleRunQuery(db))
			authed.POST("/omics", handleUploadOmic(db))
			authed.GET("/omics", handleListOmics(db))
			authed.GET("/omics/:id", handleGetOmic(db))
			authed.GET("/omics/:id/score/:network", handleScoreOmic(db))
			authed.POST("/reports/import", handleImport(opts.Importer))
			authed.POST("/projects", handleCreateProject(db))
			authed.POST("/projects/:id/networks", handleAddToProject(db))
		}
	}
}

func handleIndex(db *gorm.DB, stalledAfter time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, "layout.html", dashboardData(db, stalledAfter))
	}
}

func handleReportsPage(db *gorm.DB, stalledAfter time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var rows []models.Report
		if err := db.Order("created_at DESC").Limit(100).Find(&rows).Error; err != nil {
			c.String(http.StatusInternalServerError, "list reports: %v", err)
			return
		}
		c.HTML(http.StatusOK, "layout.html", gin.H{
			"page":    "reports",
			"Reports": reportViews(rows, stalledAfter),
		})
	}
}

func handleNetworksPage(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := c.Query("q")
		nets, err := networks.Search(db, q)
		if err != nil {
			c.String(http.StatusInternalServerError, "list networks: %v", err)
			return
		}
		c.HTML(http.StatusOK, "layout.html", gin.H{
			"page":     "networks",
			"Query":    q,
			"Networks": nets,
		})
	}
}

func handleNetworkDetailPage(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := networks.Get(db, c.Param("id"))
		if err != nil {
			c.String(http.StatusNotFound, "network not found")
			return
		}
		c.HTML(http.StatusOK, "layout.html", gin.H{
			"page":    "network-detail",
			"Network": n,
		})
	}
}

// handleCreateReport accepts a BEL document as a multipart "document" file or
// as the raw request body and enqueues it for compilation.
func handleCreateReport(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)

		name := c.Query("name")
		var document []byte

		if file, err := c.FormFile("document"); err == nil {
			f, err := file.Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("open upload: %v", err)})
				return
			}
			defer f.Close()
			document, err = io.ReadAll(f)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("read upload: %v", err)})
				return
			}
			if name == "" {
				name = file.Filename
			}
		} else {
			body, err := io.ReadAll(c.Request.Body)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("read body: %v", err)})
				return
			}
			document = body
		}

		r, err := reports.Create(db, user.ID, name, document)
		if err != nil {
			if errors.Is(err, reports.ErrEmptyDocument) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "document is empty"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"id": r.ID, "status": r.Status})
	}
}

func handleListReports(db *gorm.DB, stalledAfter time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		rs, err := reports.ListByUser(db, user.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, reportViews(rs, stalledAfter))
	}
}

func handleGetReport(db *gorm.DB, stalledAfter time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, err := reports.Get(db, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
			return
		}
		c.JSON(http.StatusOK, newReportView(r, stalledAfter))
	}
}

func handleListNetworks(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		nets, err := networks.Search(db, c.Query("q"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, nets)
	}
}

func handleGetNetwork(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := networks.Get(db, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "network not found"})
			return
		}
		c.JSON(http.StatusOK, n)
	}
}

func handleExportNetwork(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		format := c.DefaultQuery("format", networks.FormatJSON)

		contentType := "application/json"
		switch format {
		case networks.FormatGraphML:
			contentType = "application/xml"
		case networks.FormatSIF:
			contentType = "text/plain"
		}

		var buf bytes.Buffer
		if err := networks.Export(db, &buf, id, format); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "network not found"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.%s", id, format))
		c.Data(http.StatusOK, contentType, buf.Bytes())
	}
}

func handleVote(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		edgeID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid edge id"})
			return
		}

		var body struct {
			Agree bool `json:"agree"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("decode body: %v", err)})
			return
		}

		vote, err := networks.Vote(db, uint(edgeID), user.ID, body.Agree)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "edge not found"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"edge_id": vote.EdgeID, "agree": vote.Agreed})
	}
}

func handleEdgeTally(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		edgeID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid edge id"})
			return
		}
		tally, err := networks.VoteTally(db, uint(edgeID))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"agree": tally.Agree, "disagree": tally.Disagree})
	}
}

func handleListProjects(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		projects, err := networks.ListProjects(db)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, projects)
	}
}

func handleCreateProject(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("decode body: %v", err)})
			return
		}
		p, err := networks.CreateProject(db, body.Name, body.Description)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, p)
	}
}

func handleAddToProject(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
			return
		}
		var body struct {
			NetworkID string `json:"network_id"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("decode body: %v", err)})
			return
		}
		if err := networks.AddToProject(db, uint(projectID), body.NetworkID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "project or network not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"project_id": projectID, "network_id": body.NetworkID})
	}
}

func handleCreateQuery(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		var body struct {
			NetworkIDs []string `json:"network_ids"`
			SeedNodes  []string `json:"seed_nodes"`
			SeedMethod string   `json:"seed_method"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("decode body: %v", err)})
			return
		}

		q, err := queries.Create(db, user.ID, body.NetworkIDs, body.SeedNodes, body.SeedMethod)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, q)
	}
}

func handleListQueries(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		qs, err := queries.ListByUser(db, user.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, qs)
	}
}

func handleGetQuery(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		q, err := queries.Get(db, c.Param("id"), user.ID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "query not found"})
			return
		}
		c.JSON(http.StatusOK, q)
	}
}

func handleRunQuery(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		q, err := queries.Get(db, c.Param("id"), user.ID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "query not found"})
			return
		}
		result, err := queries.Run(db, q)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// handleUploadOmic accepts a TSV dataset as a multipart "dataset" file or as
// the raw request body.
func handleUploadOmic(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		name := c.Query("name")
		description := c.Query("description")

		var reader io.Reader
		if file, err := c.FormFile("dataset"); err == nil {
			f, err := file.Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("open upload: %v", err)})
				return
			}
			defer f.Close()
			reader = f
			if name == "" {
				name = file.Filename
			}
		} else {
			reader = c.Request.Body
		}

		o, err := omics.Upload(db, user.ID, name, description, reader)
		if err != nil {
			if errors.Is(err, omics.ErrEmptyDataset) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "dataset is empty"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": o.ID, "rows": o.RowCount})
	}
}

func handleListOmics(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		datasets, err := omics.ListByUser(db, user.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, datasets)
	}
}

func handleGetOmic(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, err := omics.Get(db, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "dataset not found"})
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

func handleScoreOmic(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		score, err := omics.ScoreNetwork(db, c.Param("id"), c.Param("network"))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "dataset or network not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, score)
	}
}

func handleImport(importer *ghimport.Importer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if importer == nil {
			c.JSON(http.StatusNotImplemented, gin.H{"error": "import is not configured"})
			return
		}
		user := currentUser(c)
		var body struct {
			Owner string `json:"owner"`
			Repo  string `json:"repo"`
			Path  string `json:"path"`
			Ref   string `json:"ref"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("decode body: %v", err)})
			return
		}
		if body.Owner == "" || body.Repo == "" || body.Path == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "owner, repo and path are required"})
			return
		}
		ref := ghimport.Ref{Owner: body.Owner, Repo: body.Repo, Path: body.Path, Rev: body.Ref}
		r, err := importer.Import(c.Request.Context(), user.ID, ref)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"id": r.ID, "status": r.Status})
	}
}
