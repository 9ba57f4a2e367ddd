package manifest

import (
	"github.com/cameronsjo/manman/internal/envvalue"
	"github.com/cameronsjo/manman/internal/secrets"
)

// Request is a manifest generation request.
type Request struct {
	Engine     Engine      `json:"engine" yaml:"engine"`
	Server     *Server     `json:"server,omitempty" yaml:"server,omitempty"`
	Migrations []Migration `json:"db_migrations,omitempty" yaml:"db_migrations,omitempty"`
	CronJobs   []CronJob   `json:"cronjobs,omitempty" yaml:"cronjobs,omitempty"`
	Consumers  []Consumer  `json:"consumers,omitempty" yaml:"consumers,omitempty"`

	Secrets *secrets.Block `json:"secrets,omitempty" yaml:"secrets,omitempty"`

	// Envs are plain environment variables shared by every workload.
	Envs envvalue.Map[string] `json:"envs,omitempty" yaml:"envs,omitempty"`
}

// Engine describes the language runtime of the project.
type Engine struct {
	Language                 Language        `json:"language" yaml:"language"`
	AdditionalSystemPackages []string        `json:"additional_system_packages,omitempty" yaml:"additional_system_packages,omitempty"`
	PackageManager           *PackageManager `json:"package_manager,omitempty" yaml:"package_manager,omitempty"`
}

// Language is a runtime name and version, e.g. Python 3.12.
type Language struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
}

// PackageManager is the dependency tool used at build time.
type PackageManager struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
}

// Requests are container resource requests.
type Requests struct {
	Memory envvalue.Value[string] `json:"memory" yaml:"memory"`
	CPU    envvalue.Value[string] `json:"cpu" yaml:"cpu"`
}

// HPA configures a horizontal pod autoscaler.
type HPA struct {
	MinReplicas                 envvalue.Value[int] `json:"min_replicas" yaml:"min_replicas"`
	MaxReplicas                 envvalue.Value[int] `json:"max_replicas" yaml:"max_replicas"`
	TargetCPUUtilizationPercent envvalue.Value[int] `json:"target_cpu_utilization_percent" yaml:"target_cpu_utilization_percent"`
}

// Server is the long-running HTTP workload. Exactly one of Replicas and
// HPA must be set.
type Server struct {
	Replicas     envvalue.Value[int]    `json:"replicas,omitzero" yaml:"replicas,omitempty"`
	MemoryLimits envvalue.Value[string] `json:"memory_limits" yaml:"memory_limits"`
	Requests     Requests               `json:"requests" yaml:"requests"`
	Envs         envvalue.Map[string]   `json:"envs,omitempty" yaml:"envs,omitempty"`
	HPA          *HPA                   `json:"hpa,omitempty" yaml:"hpa,omitempty"`
}

// Concurrency is the Kubernetes CronJob concurrency policy.
type Concurrency string

// Concurrency policies.
const (
	ConcurrencyAllow   Concurrency = "Allow"
	ConcurrencyForbid  Concurrency = "Forbid"
	ConcurrencyReplace Concurrency = "Replace"
)

// Valid reports whether c is a known policy.
func (c Concurrency) Valid() bool {
	switch c {
	case ConcurrencyAllow, ConcurrencyForbid, ConcurrencyReplace:
		return true
	}
	return false
}

// CronJob is a scheduled workload. It renders only when Enabled resolves
// to true for the target environment.
type CronJob struct {
	Name        string                 `json:"name" yaml:"name"`
	Enabled     envvalue.Value[bool]   `json:"enabled" yaml:"enabled"`
	Command     string                 `json:"command" yaml:"command"`
	Schedule    envvalue.Value[string] `json:"schedule" yaml:"schedule"`
	Concurrency Concurrency            `json:"concurrency" yaml:"concurrency"`
	Envs        envvalue.Map[string]   `json:"envs,omitempty" yaml:"envs,omitempty"`
}

// Consumer is a queue worker. It renders only when Enabled resolves to
// true for the target environment.
type Consumer struct {
	Name         string                 `json:"name" yaml:"name"`
	Enabled      envvalue.Value[bool]   `json:"enabled" yaml:"enabled"`
	Command      string                 `json:"command" yaml:"command"`
	Replicas     envvalue.Value[int]    `json:"replicas" yaml:"replicas"`
	MemoryLimits envvalue.Value[string] `json:"memory_limits" yaml:"memory_limits"`
	Requests     Requests               `json:"requests" yaml:"requests"`
	Envs         envvalue.Map[string]   `json:"envs,omitempty" yaml:"envs,omitempty"`
}

// Migration is a one-off database migration job.
type Migration struct {
	Command envvalue.Value[string] `json:"command" yaml:"command"`
	Envs    envvalue.Map[string]   `json:"envs,omitempty" yaml:"envs,omitempty"`
}

// Metadata holds the request-scoped facts that are not part of the
// request body: what is being deployed, where, and by whom.
type Metadata struct {
	Image       string `json:"image" yaml:"image"`
	ProjectID   string `json:"project_id" yaml:"project_id"`
	ProjectName string `json:"project_name" yaml:"project_name"`
	Environment string `json:"current_env" yaml:"current_env"`
	Team        string `json:"team" yaml:"team"`
	BranchName  string `json:"branch_name" yaml:"branch_name"`
	Commit      string `json:"commit" yaml:"commit"`
}
