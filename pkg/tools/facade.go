// ABOUTME: Tool facade exposing the fifteen content tools over one repository
// ABOUTME: Validates arguments, applies defaults and maps every failure to a fault kind

package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/nainya/contentmcp/pkg/faults"
	"github.com/nainya/contentmcp/pkg/lifecycle"
	"github.com/nainya/contentmcp/pkg/query"
	"github.com/nainya/contentmcp/pkg/repository"
	"github.com/nainya/contentmcp/pkg/workspace"
)

// DefaultMaxFileSize caps uploads and checkin content
const DefaultMaxFileSize int64 = 100 << 20

// Config wires the facade to its collaborators
type Config struct {
	Repository  repository.Client
	Engine      *query.Engine
	Lifecycle   *lifecycle.Controller
	Workspace   *workspace.Workspace // nil disables save-to-disk and working files
	MaxFileSize int64
	Logger      zerolog.Logger
}

// Facade implements every tool against a repository client
type Facade struct {
	repo     repository.Client
	engine   *query.Engine
	lc       *lifecycle.Controller
	ws       *workspace.Workspace
	maxFile  int64
	log      zerolog.Logger
	validate *validator.Validate
	handlers map[string]handler
}

type handler func(ctx context.Context, args json.RawMessage) (Output, error)

// New builds a facade. Engine defaults to one over Repository.
func New(cfg Config) (*Facade, error) {
	if cfg.Repository == nil {
		return nil, errors.New("tools: repository client is required")
	}
	f := &Facade{
		repo:     cfg.Repository,
		engine:   cfg.Engine,
		lc:       cfg.Lifecycle,
		ws:       cfg.Workspace,
		maxFile:  cfg.MaxFileSize,
		log:      cfg.Logger,
		validate: newValidator(),
	}
	if f.engine == nil {
		f.engine = query.NewEngine(cfg.Repository, query.WithLogger(cfg.Logger))
	}
	if f.lc == nil {
		return nil, errors.New("tools: lifecycle controller is required")
	}
	if f.maxFile <= 0 {
		f.maxFile = DefaultMaxFileSize
	}
	f.handlers = map[string]handler{
		ToolSearchContent:        bind(f, f.SearchContent),
		ToolAdvancedSearch:       bind(f, f.AdvancedSearch),
		ToolSearchByMetadata:     bind(f, f.SearchByMetadata),
		ToolCMISSearch:           bind(f, f.CMISSearch),
		ToolBrowseRepository:     bind(f, f.BrowseRepository),
		ToolRepositoryInfo:       bind(f, f.RepositoryInfo),
		ToolUploadDocument:       bind(f, f.UploadDocument),
		ToolDownloadDocument:     bind(f, f.DownloadDocument),
		ToolCreateFolder:         bind(f, f.CreateFolder),
		ToolGetNodeProperties:    bind(f, f.GetNodeProperties),
		ToolUpdateNodeProperties: bind(f, f.UpdateNodeProperties),
		ToolDeleteNode:           bind(f, f.DeleteNode),
		ToolCheckoutDocument:     bind(f, f.CheckoutDocument),
		ToolCheckinDocument:      bind(f, f.CheckinDocument),
		ToolCancelCheckout:       bind(f, f.CancelCheckout),
	}
	return f, nil
}

// Caller returns the identity the facade acts as
func (f *Facade) Caller() string {
	return f.lc.Caller()
}

// Call decodes JSON arguments and runs the named tool
func (f *Facade) Call(ctx context.Context, name string, args json.RawMessage) (Output, error) {
	h, ok := f.handlers[name]
	if !ok {
		return nil, faults.Validation("unknown tool %q", name)
	}
	return h(ctx, args)
}

// Has reports whether name is a known tool
func (f *Facade) Has(name string) bool {
	_, ok := f.handlers[name]
	return ok
}

func bind[In any, Out Output](f *Facade, fn func(context.Context, In) (Out, error)) handler {
	return func(ctx context.Context, args json.RawMessage) (Output, error) {
		var in In
		if len(bytes.TrimSpace(args)) > 0 && !bytes.Equal(bytes.TrimSpace(args), []byte("null")) {
			dec := json.NewDecoder(bytes.NewReader(args))
			dec.DisallowUnknownFields()
			if err := dec.Decode(&in); err != nil {
				return nil, faults.Validation("invalid arguments: %v", err)
			}
		}
		out, err := fn(ctx, in)
		if err != nil {
			return nil, err
		}
		return out, nil
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// check runs struct validation and reports the first failure as a validation fault
func (f *Facade) check(in any) error {
	err := f.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return faults.Validation("invalid arguments: %v", err)
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return faults.Validation("%s is required", fe.Field())
	case "max":
		return faults.Validation("%s must be at most %s characters", fe.Field(), fe.Param())
	case "min":
		return faults.Validation("%s must be at least %s", fe.Field(), fe.Param())
	case "oneof":
		return faults.Validation("%s must be one of [%s]", fe.Field(), fe.Param())
	case "excludesall":
		return faults.Validation("%s must not contain path separators", fe.Field())
	default:
		return faults.Validation("%s failed %s check", fe.Field(), fe.Tag())
	}
}

// nodeRef accepts plain ids, aliases and URI-style references such as
// alfresco://node/<id> or workspace://SpacesStore/<id>.
func nodeRef(field, raw string) (repository.NodeRef, error) {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "://"); i >= 0 {
		s = strings.Trim(s[i+3:], "/")
		if j := strings.LastIndex(s, "/"); j >= 0 {
			s = s[j+1:]
		}
	}
	if s == "" {
		return "", faults.Validation("%s is required", field)
	}
	return repository.NodeRef(s), nil
}

func refOrDefault(field, raw string, def repository.NodeRef) (repository.NodeRef, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	return nodeRef(field, raw)
}

func limitOrDefault(v *int) int {
	if v == nil {
		return query.DefaultMaxResults
	}
	return *v
}

func flagOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func (f *Facade) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, f.maxFile+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > f.maxFile {
		return nil, faults.Validation("content exceeds the %s limit", formatSize(f.maxFile))
	}
	return data, nil
}

func nodeItem(n *repository.Node) NodeItem {
	item := NodeItem{
		ID:         n.ID.String(),
		Name:       n.Name,
		NodeType:   n.NodeType,
		IsFile:     n.IsFile,
		IsFolder:   n.IsFolder,
		Path:       n.FullPath(),
		MimeType:   n.MimeType,
		SizeBytes:  n.SizeBytes,
		ModifiedAt: stamp(n.ModifiedAt),
		IsLocked:   n.IsLocked,
	}
	if n.IsFile {
		item.Size = formatSize(n.SizeBytes)
	}
	return item
}
