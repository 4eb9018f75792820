// Package export renders profile drafts as PDF documents.
package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goliatone/go-logger/glog"
	portfolio "github.com/goliatone/go-portfolio"
)

const (
	FileName         = "portfolio.pdf"
	ContentType      = "application/pdf"
	ConfirmMessage   = portfolio.MsgExportConfirm
	Title            = "Portfolio"
	NotAvailable     = "N/A"
	AboutPlaceholder = "No information provided."
)

// DefaultSkills are listed when the draft has none.
var DefaultSkills = []string{"HTML", "CSS", "JavaScript"}

// Archive keeps a copy of every exported document.
type Archive interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
}

// Exporter implements portfolio.DocumentExporter.
type Exporter struct {
	archive Archive
	logger  glog.Logger
	now     func() time.Time
}

var _ portfolio.DocumentExporter = (*Exporter)(nil)

// Option configures an Exporter.
type Option func(*Exporter)

// WithArchive uploads each export. Upload failures are logged only.
func WithArchive(archive Archive) Option {
	return func(e *Exporter) {
		e.archive = archive
	}
}

func WithLogger(logger glog.Logger) Option {
	return func(e *Exporter) {
		e.logger = glog.Ensure(logger)
	}
}

// WithClock sets the time source used for the footer and archive keys.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) {
		if now != nil {
			e.now = now
		}
	}
}

func New(opts ...Option) *Exporter {
	e := &Exporter{
		logger: glog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Export asks for confirmation and renders the draft. A declined prompt
// returns a nil artifact and no error. A nil prompt counts as confirmed.
func (e *Exporter) Export(ctx context.Context, draft portfolio.ProfileDraft, prompt portfolio.Prompter) (*portfolio.Artifact, error) {
	if prompt != nil {
		ok, err := prompt.Confirm(ctx, ConfirmMessage)
		if err != nil {
			return nil, err
		}
		if !ok {
			e.logger.Debug("export declined")
			return nil, nil
		}
	}

	var buf bytes.Buffer
	if err := e.Render(&buf, draft); err != nil {
		e.logger.Error("export failed", "error", err)
		return nil, err
	}

	artifact := &portfolio.Artifact{
		Name:        FileName,
		ContentType: ContentType,
		Data:        buf.Bytes(),
	}

	if e.archive != nil {
		key := e.archiveKey(draft)
		if err := e.archive.Upload(ctx, key, artifact.Data, artifact.ContentType); err != nil {
			e.logger.Warn("export archive upload failed", "key", key, "error", err)
		} else {
			e.logger.Info("export archived", "key", key, "bytes", len(artifact.Data))
		}
	}

	return artifact, nil
}

// Render writes the document for draft to w.
func (e *Exporter) Render(w io.Writer, draft portfolio.ProfileDraft) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = portfolio.NewExportError(fmt.Errorf("pdf layout panic: %v", r))
		}
	}()

	doc := newLayout(e.now())
	doc.title(Title)
	doc.divider()

	doc.section("Personal Information")
	doc.field("Name", draft.Name)
	doc.field("Username", draft.Username)
	doc.field("Email", draft.Email)
	doc.field("GitHub", draft.GitHub)

	doc.section("About Me")
	about := strings.TrimSpace(draft.About)
	if about == "" {
		about = AboutPlaceholder
	}
	doc.paragraph(about)

	doc.section("Skills")
	skills := draft.Skills()
	if len(skills) == 0 {
		skills = DefaultSkills
	}
	for _, skill := range skills {
		doc.bullet(skill)
	}

	if doc.pdf.Err() {
		return portfolio.NewExportError(doc.pdf.Error())
	}
	if err := doc.pdf.Output(w); err != nil {
		return portfolio.NewExportError(err)
	}
	return nil
}

func (e *Exporter) archiveKey(draft portfolio.ProfileDraft) string {
	owner := strings.TrimPrefix(strings.TrimSpace(draft.Username), "@")
	if owner == "" {
		owner = "anonymous"
	}
	return fmt.Sprintf("exports/%s/%s-%s", owner, e.now().UTC().Format("20060102T150405Z"), FileName)
}
