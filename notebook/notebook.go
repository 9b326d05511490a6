// Package notebook launches JupyterLab notebooks from list views.
package notebook

import (
	"context"
	"errors"
	"log/slog"

	"github.com/andreyvit/viewstate/report"
)

// ErrPreviewUnavailable is returned by Launcher.Preview when the server
// could not produce a config preview.
var ErrPreviewUnavailable = errors.New("Unable to load JupyterLab config.")

// Options are the user-editable launch parameters. Empty strings and nil
// pointers are omitted from the request.
type Options struct {
	Name        string
	Pool        string
	Template    string
	Slots       *int
	WorkspaceID *int
}

// LaunchOptions are Options plus an explicit config. A nil Config is
// replaced with the config built from Options.
type LaunchOptions struct {
	Options
	Config map[string]any
}

// Request is the body of a JupyterLab launch or preview call.
type Request struct {
	Config       map[string]any `json:"config,omitempty"`
	TemplateName string         `json:"templateName,omitempty"`
	Preview      bool           `json:"preview,omitempty"`
	WorkspaceID  *int           `json:"workspaceId,omitempty"`
}

// CommandResponse describes a launched notebook.
type CommandResponse struct {
	ID             string         `json:"id"`
	ServiceAddress string         `json:"serviceAddress,omitempty"`
	Config         map[string]any `json:"config,omitempty"`
	Warnings       []string       `json:"warnings,omitempty"`
}

type API interface {
	LaunchJupyterLab(ctx context.Context, req Request) (CommandResponse, error)
	PreviewJupyterLab(ctx context.Context, req Request) (map[string]any, error)
}

// Config returns the launch config derived from opt:
// {"description": name, "resources": {"resource_pool": pool, "slots": slots}}
// with empty strings and nil pointers left out. resources is always present.
func (opt Options) Config() map[string]any {
	config := make(map[string]any)
	if opt.Name != "" {
		config["description"] = opt.Name
	}
	resources := make(map[string]any)
	if opt.Pool != "" {
		resources["resource_pool"] = opt.Pool
	}
	if opt.Slots != nil {
		resources["slots"] = *opt.Slots
	}
	config["resources"] = resources
	return config
}

func (opt Options) request(config map[string]any, preview bool) Request {
	if config == nil {
		config = opt.Config()
	}
	return Request{
		Config:       config,
		TemplateName: opt.Template,
		Preview:      preview,
		WorkspaceID:  opt.WorkspaceID,
	}
}

// Launcher starts notebooks through an API and hands results to Open.
type Launcher struct {
	API      API
	Reporter report.Reporter

	// Open receives a successfully launched notebook.
	Open func(ctx context.Context, resp CommandResponse)
}

// Launch starts a notebook. Failures are reported, not returned.
func (l *Launcher) Launch(ctx context.Context, opt LaunchOptions) {
	resp, err := l.API.LaunchJupyterLab(ctx, opt.Options.request(opt.Config, false))
	if err != nil {
		report.Or(l.Reporter).Report(ctx, err, report.Options{
			Level:         report.LevelError,
			Type:          report.TypeServer,
			Silent:        false,
			PublicMessage: "Unable to launch JupyterLab.",
			Attrs:         []slog.Attr{slog.String("template", opt.Template)},
		})
		return
	}
	if l.Open != nil {
		l.Open(ctx, resp)
	}
}

// Preview returns the config the server would launch with. The config sent
// is always built from opt. On failure the cause is reported silently and
// ErrPreviewUnavailable is returned.
func (l *Launcher) Preview(ctx context.Context, opt Options) (map[string]any, error) {
	config, err := l.API.PreviewJupyterLab(ctx, opt.request(nil, true))
	if err != nil {
		report.Or(l.Reporter).Report(ctx, err, report.Options{
			Level:         report.LevelDebug,
			Type:          report.TypeServer,
			Silent:        true,
			PublicMessage: ErrPreviewUnavailable.Error(),
		})
		return nil, ErrPreviewUnavailable
	}
	return config, nil
}
