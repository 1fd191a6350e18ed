package echoapi

import (
	"mime"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/quiz"
	filestore "github.com/trezcool/elimu/services/files"
)

type fileAPI struct {
	quizzes *quiz.Service
}

func registerFileAPI(g *echo.Group, quizzes *quiz.Service) {
	api := fileAPI{quizzes: quizzes}
	g.GET("/uploads/:folder/:filename", api.download)
}

// download streams a stored upload as an attachment named after its original file name.
func (api *fileAPI) download(ctx echo.Context) error {
	ident, err := contextIdentity(ctx)
	if err != nil {
		return err
	}

	relPath := core.FilePath(core.FileCategory(ctx.Param("folder")), ctx.Param("filename"))
	rc, err := api.quizzes.OpenFile(ctx.Request().Context(), ident, relPath)
	if err != nil {
		return errors.Wrap(err, "opening file")
	}
	defer func() { _ = rc.Close() }()

	name := ctx.Param("filename")
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": core.OriginalFileName(name)})
	ctx.Response().Header().Set(echo.HeaderContentDisposition, disposition)
	return ctx.Stream(http.StatusOK, filestore.ContentType(name), rc)
}
