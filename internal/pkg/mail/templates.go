package mail

import (
	"bytes"
	"embed"
	"io/fs"
	"net/http"

	"github.com/gofiber/template/html/v2"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	TemplateInvitation     = "invitation"
	TemplateAccountDeleted = "account_deleted"
)

type InvitationData struct {
	ProductName string
	AccountName string
	InviterName string
	InviteLink  string
}

type AccountDeletedData struct {
	ProductName string
	UserName    string
	SupportURL  string
}

// Renderer renders the embedded email templates.
type Renderer struct {
	engine *html.Engine
}

func NewRenderer() (*Renderer, error) {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	if err := engine.Load(); err != nil {
		return nil, err
	}
	return &Renderer{engine: engine}, nil
}

func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.engine.Render(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
