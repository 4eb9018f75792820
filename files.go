package portfolio

import (
	"embed"
	"net/http"

	"github.com/gofiber/template/django/v3"
)

//go:embed views
var viewsFS embed.FS

// GetViewsFS returns the view templates for this package
func GetViewsFS() embed.FS {
	return viewsFS
}

// NewViewEngine returns a django engine over the embedded views with the
// template helpers registered.
func NewViewEngine() *django.Engine {
	engine := django.NewPathForwardingFileSystem(http.FS(viewsFS), "/views", ".html")
	engine.AddFuncMap(TemplateHelpers())
	return engine
}
