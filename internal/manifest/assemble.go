package manifest

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cameronsjo/manman/internal/envvalue"
	"github.com/cameronsjo/manman/internal/secrets"
	"github.com/cameronsjo/manman/internal/templates"
)

// DocumentSeparator joins rendered documents into one YAML stream.
const DocumentSeparator = "\n---\n"

// Document kinds, in output order.
const (
	DocMigration  = "migration"
	DocServer     = "server"
	DocServerHPA  = "server-hpa"
	DocCronJob    = "cronjob"
	DocConsumer   = "consumer"
	DocDockerfile = "dockerfile"
)

// Variables injected into every workload environment.
const (
	EnvCurrentEnv = "CURRENT_ENV"
	EnvCommit     = "COMMIT"
)

// Document is one rendered manifest.
type Document struct {
	Kind string

	// Name is the cron job or consumer name; empty for other kinds.
	Name string

	// Template is the template that produced the document.
	Template templates.Resolution

	Content string
}

// JoinDocuments concatenates rendered documents into a multi-document
// YAML stream.
func JoinDocuments(docs []Document) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.Content
	}
	return strings.Join(parts, DocumentSeparator)
}

// Assembler renders requests against a template store.
type Assembler struct {
	resolver    *templates.Resolver
	secrets     *secrets.Materializer
	keys        secrets.KeySource
	release     string
	concurrency int
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithKeySource resolves secrets.key_path references through keys.
func WithKeySource(keys secrets.KeySource) Option {
	return func(a *Assembler) { a.keys = keys }
}

// WithRelease sets the release tag exposed to templates.
func WithRelease(release string) Option {
	return func(a *Assembler) { a.release = release }
}

// WithConcurrency caps the number of documents rendered at once. Zero or
// less means no cap.
func WithConcurrency(n int) Option {
	return func(a *Assembler) { a.concurrency = n }
}

// NewAssembler creates an Assembler over store.
func NewAssembler(store templates.Store, opts ...Option) *Assembler {
	a := &Assembler{resolver: templates.NewResolver(store)}
	for _, opt := range opts {
		opt(a)
	}
	a.secrets = secrets.NewMaterializer(a.keys)
	return a
}

// Resolver returns the template resolver used by the assembler.
func (a *Assembler) Resolver() *templates.Resolver {
	return a.resolver
}

// job is one document waiting to be rendered.
type job struct {
	kind string
	name string
	file string
	data map[string]any
}

// Assemble renders every workload of req for md.Environment. Documents are
// ordered migrations, server, server autoscaler, cron jobs, consumers. The
// request is expected to have passed Validate; on any failure no documents
// are returned.
func (a *Assembler) Assemble(ctx context.Context, req *Request, md Metadata) ([]Document, error) {
	env := md.Environment
	language := languageDir(req.Engine)

	envs := req.Envs.Resolve(env)
	envs[EnvCurrentEnv] = env
	envs[EnvCommit] = md.Commit
	if err := a.secrets.Materialize(ctx, req.Secrets, env, envs); err != nil {
		return nil, fmt.Errorf("materialize secrets: %w", err)
	}

	common, err := a.commonBindings(ctx, md, language)
	if err != nil {
		return nil, err
	}

	jobs := buildJobs(req, env, common, envs)
	return a.render(ctx, jobs, md.Team, language)
}

// RenderDockerfile renders the build file for engine.
func (a *Assembler) RenderDockerfile(ctx context.Context, engine Engine, md Metadata) (Document, error) {
	var pm any
	if engine.PackageManager != nil {
		pm = map[string]any{
			"name":    engine.PackageManager.Name,
			"version": engine.PackageManager.Version,
		}
	}

	data := a.facts(md)
	data["language"] = engine.Language.Name
	data["version"] = engine.Language.Version
	data["additional_system_packages"] = strings.Join(engine.AdditionalSystemPackages, " ")
	data["package_manager"] = pm

	docs, err := a.render(ctx, []job{{kind: DocDockerfile, file: templates.DockerfileFile, data: data}}, md.Team, languageDir(engine))
	if err != nil {
		return Document{}, err
	}
	return docs[0], nil
}

// facts are the request-scoped bindings every template receives.
func (a *Assembler) facts(md Metadata) map[string]any {
	return map[string]any{
		"image":        md.Image,
		"project_name": md.ProjectName,
		"project_id":   md.ProjectID,
		"current_env":  md.Environment,
		"team":         md.Team,
		"branch_name":  md.BranchName,
		"commit":       md.Commit,
		"release":      a.release,
	}
}

// commonBindings adds the resolved tolerations and affinity overlays to
// the request facts.
func (a *Assembler) commonBindings(ctx context.Context, md Metadata, language string) (map[string]any, error) {
	tolerations, err := a.overlay(ctx, templates.TolerationsFile, md, language, []any{})
	if err != nil {
		return nil, err
	}
	affinity, err := a.overlay(ctx, templates.AffinityFile, md, language, map[string]any{})
	if err != nil {
		return nil, err
	}

	data := a.facts(md)
	data["tolerations"] = tolerations
	data["affinity"] = affinity
	return data, nil
}

// overlay loads an optional YAML overlay through the template cascade and
// resolves it for the target environment. A mapping at the top level is
// keyed by environment. fallback is used when no level has the file or it
// has no value for the environment.
func (a *Assembler) overlay(ctx context.Context, file string, md Metadata, language string, fallback any) (any, error) {
	var v envvalue.Value[any]
	found, err := a.resolver.LoadOverlay(ctx, file, md.Team, language, &v)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", file, err)
	}
	if !found {
		return fallback, nil
	}
	if resolved, ok := v.Resolve(md.Environment); ok && resolved != nil {
		return resolved, nil
	}
	return fallback, nil
}

// buildJobs lists the documents to render, in output order.
func buildJobs(req *Request, env string, common map[string]any, envs map[string]string) []job {
	var jobs []job

	for _, m := range req.Migrations {
		jobs = append(jobs, job{
			kind: DocMigration,
			file: templates.MigrationFile,
			data: bind(common, map[string]any{
				"envs":    scoped(envs, m.Envs, env),
				"command": resolved(m.Command, env),
			}),
		})
	}

	if s := req.Server; s != nil {
		jobs = append(jobs, job{
			kind: DocServer,
			file: templates.ServerFile,
			data: bind(common, map[string]any{
				"envs":                scoped(envs, s.Envs, env),
				"replicas":            resolved(s.Replicas, env),
				"is_hpa_enabled":      s.HPA != nil,
				"enable_prom_metrics": true,
				"memory_limits":       resolved(s.MemoryLimits, env),
				"memory_requests":     resolved(s.Requests.Memory, env),
				"cpu_requests":        resolved(s.Requests.CPU, env),
			}),
		})

		if h := s.HPA; h != nil {
			jobs = append(jobs, job{
				kind: DocServerHPA,
				file: templates.ServerHPAFile,
				data: bind(common, map[string]any{
					"envs":                           scoped(envs, s.Envs, env),
					"min_replicas":                   resolved(h.MinReplicas, env),
					"max_replicas":                   resolved(h.MaxReplicas, env),
					"target_cpu_utilization_percent": resolved(h.TargetCPUUtilizationPercent, env),
				}),
			})
		}
	}

	for _, c := range req.CronJobs {
		if !c.Enabled.ResolveOr(env, false) {
			continue
		}
		jobs = append(jobs, job{
			kind: DocCronJob,
			name: c.Name,
			file: templates.CronJobFile,
			data: bind(common, map[string]any{
				"envs":        scoped(envs, c.Envs, env),
				"name":        c.Name,
				"command":     c.Command,
				"schedule":    resolved(c.Schedule, env),
				"concurrency": string(c.Concurrency),
			}),
		})
	}

	for _, c := range req.Consumers {
		if !c.Enabled.ResolveOr(env, false) {
			continue
		}
		jobs = append(jobs, job{
			kind: DocConsumer,
			name: c.Name,
			file: templates.ConsumerFile,
			data: bind(common, map[string]any{
				"envs":            scoped(envs, c.Envs, env),
				"name":            c.Name,
				"command":         c.Command,
				"replicas":        resolved(c.Replicas, env),
				"memory_limits":   resolved(c.MemoryLimits, env),
				"memory_requests": resolved(c.Requests.Memory, env),
				"cpu_requests":    resolved(c.Requests.CPU, env),
			}),
		})
	}

	return jobs
}

// render resolves and renders jobs concurrently. Each job writes only its
// own slot, so output order is job order.
func (a *Assembler) render(ctx context.Context, jobs []job, team, language string) ([]Document, error) {
	docs := make([]Document, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	if a.concurrency > 0 {
		g.SetLimit(a.concurrency)
	}
	for i, j := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			start := time.Now()
			doc, err := a.renderJob(ctx, j, team, language)
			observeRender(j.kind, start, err)
			if err != nil {
				if j.name != "" {
					return fmt.Errorf("%s %s: %w", j.kind, j.name, err)
				}
				return fmt.Errorf("%s: %w", j.kind, err)
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

func (a *Assembler) renderJob(ctx context.Context, j job, team, language string) (Document, error) {
	res, content, err := a.resolver.Load(ctx, j.file, team, language)
	if err != nil {
		return Document{}, err
	}
	out, err := renderTemplate(res.Path, content, j.data)
	if err != nil {
		return Document{}, err
	}
	return Document{Kind: j.kind, Name: j.name, Template: res, Content: out}, nil
}

// languageDir is the team-language directory name for engine.
func languageDir(engine Engine) string {
	return strings.ToLower(engine.Language.Name)
}

// bind layers extra over a copy of common.
func bind(common, extra map[string]any) map[string]any {
	data := maps.Clone(common)
	maps.Copy(data, extra)
	return data
}

// scoped overlays the entry's own variables on a copy of the shared ones.
func scoped(base map[string]string, own envvalue.Map[string], env string) map[string]string {
	envs := maps.Clone(base)
	maps.Copy(envs, own.Resolve(env))
	return envs
}

// resolved returns the value for env, or nil when there is none, so the
// template sees an explicit empty binding.
func resolved[T any](v envvalue.Value[T], env string) any {
	if e, ok := v.Resolve(env); ok {
		return e
	}
	return nil
}
