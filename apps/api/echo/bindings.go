package echoapi

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads "?ordering=field,-other" (a leading "-" sorts descending).
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// pathID parses a positive integer path parameter; anything else is a 404.
func pathID(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}

// formFile opens the uploaded file of the multipart field `name`.
// The caller must close the returned file.
func formFile(ctx echo.Context, name string) (multipart.File, string, error) {
	fh, err := ctx.FormFile(name)
	if err != nil {
		switch err {
		case http.ErrMissingFile:
			return nil, "", core.NewFieldError(name, errors.New("this field is required"))
		case http.ErrNotMultipart:
			return nil, "", core.NewFieldError(name, errors.New("expected a multipart/form-data upload"))
		}
		return nil, "", errors.Wrap(err, "reading multipart form")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "", core.NewFileError("opening uploaded file", err)
	}
	return f, fh.Filename, nil
}
