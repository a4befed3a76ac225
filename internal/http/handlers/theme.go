package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/jmylchreest/mcsstheme/internal/assets"
	"github.com/jmylchreest/mcsstheme/internal/models"
	"github.com/jmylchreest/mcsstheme/internal/service"
	"github.com/jmylchreest/mcsstheme/internal/theme"
)

// ThemeHandler handles theme API endpoints.
type ThemeHandler struct {
	themeService *service.ThemeService
}

// NewThemeHandler creates a new theme handler.
func NewThemeHandler(themeService *service.ThemeService) *ThemeHandler {
	return &ThemeHandler{
		themeService: themeService,
	}
}

// Register registers the theme routes with the Huma API.
func (h *ThemeHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listThemes",
		Method:      "GET",
		Path:        "/api/v1/themes",
		Summary:     "List all themes",
		Description: "Returns all available themes (built-in and custom) with preview swatches",
		Tags:        []string{"Themes"},
	}, h.ListThemes)

	huma.Register(api, huma.Operation{
		OperationID: "getTheme",
		Method:      "GET",
		Path:        "/api/v1/themes/{themeId}",
		Summary:     "Get a theme",
		Description: "Returns the metadata and preview swatches of a single theme",
		Tags:        []string{"Themes"},
	}, h.GetTheme)

	huma.Register(api, huma.Operation{
		OperationID: "listThemeTokens",
		Method:      "GET",
		Path:        "/api/v1/themes/{themeId}/tokens",
		Summary:     "Resolve all tokens",
		Description: "Evaluates every token of a theme and returns them in declaration order",
		Tags:        []string{"Themes"},
	}, h.ListTokens)

	huma.Register(api, huma.Operation{
		OperationID: "getThemeToken",
		Method:      "GET",
		Path:        "/api/v1/themes/{themeId}/tokens/{name}",
		Summary:     "Get a token",
		Description: "Returns the declared and computed value of a single token",
		Tags:        []string{"Themes"},
	}, h.GetToken)

	huma.Register(api, huma.Operation{
		OperationID: "getThemeOrder",
		Method:      "GET",
		Path:        "/api/v1/themes/{themeId}/order",
		Summary:     "Get evaluation order",
		Description: "Returns the order in which tokens are evaluated, dependencies first",
		Tags:        []string{"Themes"},
	}, h.GetOrder)

	huma.Register(api, huma.Operation{
		OperationID: "getThemeComponents",
		Method:      "GET",
		Path:        "/api/v1/themes/{themeId}/components",
		Summary:     "Get component palettes",
		Description: "Returns the resolved palette of each colored component family",
		Tags:        []string{"Themes"},
	}, h.GetComponents)

	huma.Register(api, huma.Operation{
		OperationID: "exportTheme",
		Method:      "GET",
		Path:        "/api/v1/themes/{themeId}/export",
		Summary:     "Export a theme",
		Description: "Writes a theme as CSS, JSON or YAML, declared or resolved",
		Tags:        []string{"Themes"},
	}, h.Export)

	huma.Register(api, huma.Operation{
		OperationID: "validateTheme",
		Method:      "POST",
		Path:        "/api/v1/themes/validate",
		Summary:     "Validate a theme",
		Description: "Parses and resolves a theme source without storing it",
		Tags:        []string{"Themes"},
	}, h.Validate)
}

// RegisterChiRoutes registers additional Chi routes for theme CSS serving.
// This is separate because CSS serving needs custom content-type and caching headers.
func (h *ThemeHandler) RegisterChiRoutes(r chi.Router) {
	r.Get("/api/v1/themes/{themeId}.css", h.serveThemeCSS)
}

// ListThemesInput is the input for listing themes.
type ListThemesInput struct{}

// ListThemesOutput is the output for listing themes.
type ListThemesOutput struct {
	Body models.ThemeListResponse
}

// ListThemes returns all available themes.
func (h *ThemeHandler) ListThemes(ctx context.Context, input *ListThemesInput) (*ListThemesOutput, error) {
	response, err := h.themeService.ListThemes(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list themes", err)
	}

	return &ListThemesOutput{Body: *response}, nil
}

// GetThemeInput is the input for getting a theme.
type GetThemeInput struct {
	ThemeID string `path:"themeId" doc:"Theme ID"`
}

// GetThemeOutput is the output for getting a theme.
type GetThemeOutput struct {
	Body models.Theme
}

// GetTheme returns a single theme's catalogue entry.
func (h *ThemeHandler) GetTheme(ctx context.Context, input *GetThemeInput) (*GetThemeOutput, error) {
	info, err := h.themeService.GetTheme(ctx, input.ThemeID)
	if err != nil {
		return nil, mapError("failed to load theme", err)
	}
	return &GetThemeOutput{Body: *info}, nil
}

// ListTokensInput is the input for resolving all tokens.
type ListTokensInput struct {
	ThemeID     string `path:"themeId" doc:"Theme ID"`
	ColorFormat string `query:"color_format" enum:"preserve,hex" doc:"How colors are written (default from config)"`
	Group       string `query:"group" doc:"Only return tokens of this group"`
}

// ListTokensOutput is the output for resolving all tokens.
type ListTokensOutput struct {
	Body ResolvedTokensResponse
}

// ResolvedTokensResponse lists the resolved tokens of a theme.
type ResolvedTokensResponse struct {
	ThemeID string        `json:"theme_id"`
	Tokens  []theme.Entry `json:"tokens"`
}

// ListTokens resolves every token of a theme.
func (h *ThemeHandler) ListTokens(ctx context.Context, input *ListTokensInput) (*ListTokensOutput, error) {
	resolved, err := h.themeService.Resolve(ctx, input.ThemeID, input.ColorFormat)
	if err != nil {
		return nil, mapError("failed to resolve theme", err)
	}

	entries := resolved.Entries()
	if input.Group != "" {
		filtered := entries[:0:0]
		for _, e := range entries {
			if e.Group == input.Group {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	return &ListTokensOutput{Body: ResolvedTokensResponse{ThemeID: input.ThemeID, Tokens: entries}}, nil
}

// GetTokenInput is the input for getting a single token.
type GetTokenInput struct {
	ThemeID     string `path:"themeId" doc:"Theme ID"`
	Name        string `path:"name" doc:"Token name, with or without the leading --"`
	ColorFormat string `query:"color_format" enum:"preserve,hex" doc:"How colors are written (default from config)"`
}

// GetTokenOutput is the output for getting a single token.
type GetTokenOutput struct {
	Body TokenResponse
}

// TokenResponse describes a single token.
type TokenResponse struct {
	Name       string   `json:"name"`
	Group      string   `json:"group,omitempty"`
	Raw        string   `json:"raw" doc:"Declared value"`
	Value      string   `json:"value" doc:"Computed value"`
	Derived    bool     `json:"derived" doc:"Whether the value references other tokens or needs evaluation"`
	References []string `json:"references,omitempty"`
}

// GetToken returns the computed value of a token.
func (h *ThemeHandler) GetToken(ctx context.Context, input *GetTokenInput) (*GetTokenOutput, error) {
	t, err := h.themeService.Load(ctx, input.ThemeID)
	if err != nil {
		return nil, mapError("failed to load theme", err)
	}
	tok, err := t.Token(input.Name)
	if err != nil {
		return nil, mapError("token not found", err)
	}
	value, err := h.themeService.GetToken(ctx, input.ThemeID, input.Name, input.ColorFormat)
	if err != nil {
		return nil, mapError("failed to compute token", err)
	}

	return &GetTokenOutput{Body: TokenResponse{
		Name:       tok.Name,
		Group:      tok.Group,
		Raw:        tok.Raw,
		Value:      value,
		Derived:    tok.Derived(),
		References: tok.Refs(),
	}}, nil
}

// GetOrderInput is the input for the evaluation order.
type GetOrderInput struct {
	ThemeID string `path:"themeId" doc:"Theme ID"`
}

// GetOrderOutput is the output for the evaluation order.
type GetOrderOutput struct {
	Body struct {
		ThemeID string   `json:"theme_id"`
		Order   []string `json:"order"`
	}
}

// GetOrder returns the evaluation order of a theme.
func (h *ThemeHandler) GetOrder(ctx context.Context, input *GetOrderInput) (*GetOrderOutput, error) {
	order, err := h.themeService.Order(ctx, input.ThemeID)
	if err != nil {
		return nil, mapError("failed to order theme", err)
	}
	out := &GetOrderOutput{}
	out.Body.ThemeID = input.ThemeID
	out.Body.Order = order
	return out, nil
}

// GetComponentsInput is the input for component palettes.
type GetComponentsInput struct {
	ThemeID     string `path:"themeId" doc:"Theme ID"`
	ColorFormat string `query:"color_format" enum:"preserve,hex" doc:"How colors are written (default from config)"`
}

// GetComponentsOutput is the output for component palettes.
type GetComponentsOutput struct {
	Body struct {
		ThemeID    string            `json:"theme_id"`
		Components []theme.Component `json:"components"`
	}
}

// GetComponents returns the palettes of every component family.
func (h *ThemeHandler) GetComponents(ctx context.Context, input *GetComponentsInput) (*GetComponentsOutput, error) {
	resolved, err := h.themeService.Resolve(ctx, input.ThemeID, input.ColorFormat)
	if err != nil {
		return nil, mapError("failed to resolve theme", err)
	}
	components, err := theme.Components(resolved)
	if err != nil {
		// The theme does not declare the full component set.
		return nil, huma.Error422UnprocessableEntity("theme has no component palettes", err)
	}
	out := &GetComponentsOutput{}
	out.Body.ThemeID = input.ThemeID
	out.Body.Components = components
	return out, nil
}

// ExportInput is the input for exporting a theme.
type ExportInput struct {
	ThemeID     string `path:"themeId" doc:"Theme ID"`
	Format      string `query:"format" enum:"css,json,yaml" default:"css" doc:"Output format"`
	Resolved    bool   `query:"resolved" doc:"Write computed values instead of declared ones"`
	ColorFormat string `query:"color_format" enum:"preserve,hex" doc:"How colors are written when resolved"`
}

// ExportOutput is the output for exporting a theme.
type ExportOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	Body               []byte
}

// Export writes a theme in the requested format.
func (h *ThemeHandler) Export(ctx context.Context, input *ExportInput) (*ExportOutput, error) {
	format, err := theme.ParseExportFormat(input.Format)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}

	var buf bytes.Buffer
	if err := h.themeService.Export(ctx, &buf, input.ThemeID, format, input.Resolved, input.ColorFormat); err != nil {
		return nil, mapError("failed to export theme", err)
	}

	filename := input.ThemeID + "." + string(format)
	return &ExportOutput{
		ContentType:        assets.GetContentType(filename),
		ContentDisposition: fmt.Sprintf(`attachment; filename="%s"`, filename),
		Body:               buf.Bytes(),
	}, nil
}

// ValidateInput is the input for validating a theme source.
type ValidateInput struct {
	Body ValidateRequest
}

// ValidateRequest is a theme source to check.
type ValidateRequest struct {
	Name   string `json:"name,omitempty" doc:"Theme name (default: candidate)"`
	Format string `json:"format,omitempty" enum:"css,yaml" doc:"Source format (default: css)"`
	Source string `json:"source" minLength:"1" doc:"Theme source text"`
}

// ValidateOutput is the output for validating a theme source.
type ValidateOutput struct {
	Body ValidateResponse
}

// ValidateResponse summarizes a valid theme.
type ValidateResponse struct {
	Valid      bool     `json:"valid"`
	Name       string   `json:"name"`
	TokenCount int      `json:"token_count"`
	Groups     []string `json:"groups"`
	Order      []string `json:"order"`
}

// Validate parses and resolves a theme source. Invalid themes are 422.
func (h *ThemeHandler) Validate(ctx context.Context, input *ValidateInput) (*ValidateOutput, error) {
	name := input.Body.Name
	if name == "" {
		name = "candidate"
	}

	t, err := h.themeService.ValidateTheme(name, input.Body.Format, []byte(input.Body.Source))
	if err != nil {
		var verr models.ErrValidation
		if errors.As(err, &verr) {
			return nil, huma.Error400BadRequest(verr.Message, err)
		}
		return nil, huma.Error422UnprocessableEntity("invalid theme", err)
	}

	order, err := t.EvaluationOrder()
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid theme", err)
	}

	return &ValidateOutput{Body: ValidateResponse{
		Valid:      true,
		Name:       t.Name(),
		TokenCount: t.Len(),
		Groups:     t.Groups(),
		Order:      order,
	}}, nil
}

// serveThemeCSS serves a theme stylesheet with caching headers. With
// ?resolved=true the computed values are served, which browsers without
// calc()/mod() support can use directly.
func (h *ThemeHandler) serveThemeCSS(w http.ResponseWriter, r *http.Request) {
	themeID := strings.TrimSuffix(chi.URLParam(r, "themeId"), ".css")
	if themeID == "" {
		http.Error(w, "theme ID required", http.StatusBadRequest)
		return
	}

	resolve, _ := strconv.ParseBool(r.URL.Query().Get("resolved"))
	colorFormat := r.URL.Query().Get("color_format")

	file, err := h.themeService.GetThemeFile(r.Context(), themeID)
	if err != nil {
		writeCSSError(w, err)
		return
	}

	var css []byte
	if resolve || file.Format != "css" {
		var buf bytes.Buffer
		if err := h.themeService.Export(r.Context(), &buf, themeID, theme.FormatCSS, resolve, colorFormat); err != nil {
			writeCSSError(w, err)
			return
		}
		css = buf.Bytes()
	} else {
		css = file.Content
	}

	etag := fmt.Sprintf(`"%s"`, service.Checksum(string(css))[:16])
	w.Header().Set("Content-Type", assets.GetContentType(".css"))
	w.Header().Set("ETag", etag)

	if file.Source == models.ThemeSourceBuiltin {
		// Built-in themes never change at runtime - cache for 24 hours
		w.Header().Set("Cache-Control", "public, max-age=86400")
	} else {
		// Custom themes may change, use shorter cache with revalidation
		w.Header().Set("Cache-Control", "public, max-age=3600, must-revalidate")
		w.Header().Set("Last-Modified", file.ModifiedAt.UTC().Format(http.TimeFormat))
	}

	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	if file.Source == models.ThemeSourceCustom {
		if ims := r.Header.Get("If-Modified-Since"); ims != "" {
			if t, err := time.Parse(http.TimeFormat, ims); err == nil && !file.ModifiedAt.Truncate(time.Second).After(t) {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	}

	w.Header().Set("Content-Length", strconv.Itoa(len(css)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(css)
}

func writeCSSError(w http.ResponseWriter, err error) {
	var verr models.ErrValidation
	switch {
	case errors.As(err, &verr):
		http.Error(w, verr.Message, http.StatusBadRequest)
	case errors.Is(err, models.ErrThemeNotFound),
		errors.Is(err, models.ErrSnapshotNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, theme.ErrMalformedValue),
		errors.Is(err, theme.ErrCyclicDependency),
		errors.Is(err, theme.ErrUndefinedToken):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, "failed to load theme", http.StatusInternalServerError)
	}
}
