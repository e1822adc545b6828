package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/markdown-ticket/mdt/internal/project"
	"github.com/markdown-ticket/mdt/internal/service"
)

// projectResult is the tool-facing view of a project record.
type projectResult struct {
	ID             string   `json:"id" jsonschema:"Project identifier (directory basename)"`
	Code           string   `json:"code" jsonschema:"Ticket prefix, uppercase, 2-5 letters"`
	Name           string   `json:"name" jsonschema:"Human-readable project name"`
	Path           string   `json:"path" jsonschema:"Absolute project directory"`
	TicketsPath    string   `json:"tickets_path" jsonschema:"Tickets directory relative to the project path"`
	Description    string   `json:"description,omitempty"`
	RepositoryURL  string   `json:"repository_url,omitempty"`
	Active         bool     `json:"active"`
	Strategy       string   `json:"strategy" jsonschema:"Storage strategy: global-only, project-first, or auto-discovery"`
	DateRegistered string   `json:"date_registered,omitempty" jsonschema:"RFC3339 registration time, empty for auto-discovered projects"`
	Version        int64    `json:"version" jsonschema:"Concurrent-modification marker"`
	DocumentPaths  []string `json:"document_paths,omitempty"`
}

func toResult(rec *project.Record) projectResult {
	out := projectResult{
		ID:            rec.ID,
		Code:          rec.Code,
		Name:          rec.Name,
		Path:          rec.Path,
		TicketsPath:   rec.TicketsPath,
		Description:   rec.Description,
		RepositoryURL: rec.RepositoryURL,
		Active:        rec.Active,
		Strategy:      rec.Strategy.String(),
		Version:       rec.Version,
		DocumentPaths: rec.Document.Paths,
	}
	if !rec.DateRegistered.IsZero() {
		out.DateRegistered = rec.DateRegistered.Format(time.RFC3339)
	}
	return out
}

type createInput struct {
	Name          string   `json:"name" jsonschema:"required,Human-readable project name"`
	Code          string   `json:"code" jsonschema:"required,Ticket prefix, 2-5 letters, normalized to uppercase"`
	Path          string   `json:"path" jsonschema:"required,Project directory path"`
	TicketsPath   string   `json:"tickets_path,omitempty" jsonschema:"Tickets directory relative to the project path"`
	Description   string   `json:"description,omitempty"`
	RepositoryURL string   `json:"repository_url,omitempty" jsonschema:"Repository URL, defaulted from the git origin remote when omitted"`
	GlobalOnly    bool     `json:"global_only,omitempty" jsonschema:"Force the global-only storage strategy"`
	DocumentPaths []string `json:"document_paths,omitempty"`
}

type getInput struct {
	Project string `json:"project" jsonschema:"required,Project ID, ticket code, or directory path"`
}

type listInput struct{}

type listOutput struct {
	Projects []projectResult `json:"projects"`
}

type updateInput struct {
	ID            string   `json:"id" jsonschema:"required,Project identifier"`
	Name          *string  `json:"name,omitempty"`
	Code          *string  `json:"code,omitempty"`
	TicketsPath   *string  `json:"tickets_path,omitempty"`
	Description   *string  `json:"description,omitempty"`
	RepositoryURL *string  `json:"repository_url,omitempty"`
	DocumentPaths []string `json:"document_paths,omitempty" jsonschema:"Replaces the document path list when present"`
}

type deleteInput struct {
	ID string `json:"id" jsonschema:"required,Project identifier"`
}

type deleteOutput struct {
	Deleted string `json:"deleted"`
}

type setActiveInput struct {
	ID     string `json:"id" jsonschema:"required,Project identifier"`
	Active bool   `json:"active" jsonschema:"required,Desired active state"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "project_create",
		Description: "Register a project for ticket management",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args createInput) (*mcp.CallToolResult, projectResult, error) {
		spec := service.CreateSpec{
			Name:          args.Name,
			Code:          args.Code,
			Path:          args.Path,
			TicketsPath:   args.TicketsPath,
			Description:   args.Description,
			RepositoryURL: args.RepositoryURL,
			GlobalOnly:    args.GlobalOnly,
		}
		if len(args.DocumentPaths) > 0 {
			spec.Document.Paths = args.DocumentPaths
		}

		rec, err := s.projects.Create(ctx, spec)
		if err != nil {
			return nil, projectResult{}, s.toolError("project_create", err)
		}
		return nil, toResult(rec), nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "project_list",
		Description: "List all registered and discovered projects",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args listInput) (*mcp.CallToolResult, listOutput, error) {
		recs, err := s.projects.List(ctx)
		if err != nil {
			return nil, listOutput{}, s.toolError("project_list", err)
		}
		out := listOutput{Projects: make([]projectResult, 0, len(recs))}
		for _, rec := range recs {
			out.Projects = append(out.Projects, toResult(rec))
		}
		return nil, out, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "project_get",
		Description: "Look up a single project by ID, ticket code, or path",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args getInput) (*mcp.CallToolResult, projectResult, error) {
		rec, err := s.projects.Get(ctx, args.Project)
		if err != nil {
			return nil, projectResult{}, s.toolError("project_get", err)
		}
		return nil, toResult(rec), nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "project_update",
		Description: "Update project fields; absent fields are left unchanged",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args updateInput) (*mcp.CallToolResult, projectResult, error) {
		patch := service.Patch{
			Name:          args.Name,
			Code:          args.Code,
			TicketsPath:   args.TicketsPath,
			Description:   args.Description,
			RepositoryURL: args.RepositoryURL,
		}
		if args.DocumentPaths != nil {
			patch.Document = &project.DocumentSettings{Paths: args.DocumentPaths}
		}

		rec, err := s.projects.Update(ctx, args.ID, patch)
		if err != nil {
			return nil, projectResult{}, s.toolError("project_update", err)
		}
		return nil, toResult(rec), nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "project_delete",
		Description: "Remove a project's registration and configuration files",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args deleteInput) (*mcp.CallToolResult, deleteOutput, error) {
		if err := s.projects.Delete(ctx, args.ID); err != nil {
			return nil, deleteOutput{}, s.toolError("project_delete", err)
		}
		return nil, deleteOutput{Deleted: args.ID}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "project_set_active",
		Description: "Enable or disable a project",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args setActiveInput) (*mcp.CallToolResult, projectResult, error) {
		rec, err := s.projects.SetActive(ctx, args.ID, args.Active)
		if err != nil {
			return nil, projectResult{}, s.toolError("project_set_active", err)
		}
		return nil, toResult(rec), nil
	})
}
