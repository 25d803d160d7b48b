package projection

import (
	"errors"
	"net/http"
	"strconv"

	httperr "github.com/aevon-lab/tenantflow/internal/core/errors"
	"github.com/aevon-lab/tenantflow/internal/core/storage"
	"github.com/gin-gonic/gin"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// ReadAPI exposes committed projection rows over HTTP.
type ReadAPI struct {
	reader storage.ProjectionReader
}

// NewReadAPI creates a ReadAPI over reader.
func NewReadAPI(reader storage.ProjectionReader) *ReadAPI {
	return &ReadAPI{reader: reader}
}

// RegisterRoutes registers all projection API routes on the given router.
func (a *ReadAPI) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/projections/:table/:id", a.HandleGet)
	r.GET("/v1/projections/:table", a.HandleList)
}

// HandleGet handles GET /v1/projections/:table/:id for tables keyed by id.
func (a *ReadAPI) HandleGet(c *gin.Context) {
	table := c.Param("table")
	spec, err := storage.Lookup(table)
	if err != nil {
		writeLookupError(c, err)
		return
	}
	if len(spec.Key) != 1 || spec.Key[0] != "id" {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   "Table has a composite key; use the list endpoint with filters",
			Details:   spec.Key,
		})
		return
	}

	row, err := a.reader.Get(c.Request.Context(), table, storage.Row{"id": c.Param("id")})
	if err != nil {
		writeLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

// HandleList handles GET /v1/projections/:table?col=value&limit=n.
// Every query parameter other than limit is an equality filter.
func (a *ReadAPI) HandleList(c *gin.Context) {
	table := c.Param("table")

	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxListLimit {
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidQueryError,
				Message:   "limit must be between 1 and 1000",
				Details:   raw,
			})
			return
		}
		limit = n
	}

	filter := storage.Row{}
	for col, values := range c.Request.URL.Query() {
		if col == "limit" || len(values) == 0 {
			continue
		}
		filter[col] = values[0]
	}

	rows, err := a.reader.Find(c.Request.Context(), table, filter, limit)
	if err != nil {
		writeLookupError(c, err)
		return
	}
	if rows == nil {
		rows = []storage.Row{}
	}
	c.JSON(http.StatusOK, gin.H{"table": table, "rows": rows, "count": len(rows)})
}

func writeLookupError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrUnknownTable):
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpUnknownTableError,
			Message:   "Unknown projection table",
			Details:   err.Error(),
		})
	case errors.Is(err, storage.ErrUnknownColumn):
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   "Unknown filter column",
			Details:   err.Error(),
		})
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpNotFoundError,
			Message:   "Projection row not found",
		})
	default:
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to read projection",
			Details:   err.Error(),
		})
	}
}
