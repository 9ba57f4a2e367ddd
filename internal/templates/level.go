package templates

import (
	"fmt"
	"path"
)

// DefaultDir names the default directory at the global and team levels.
const DefaultDir = "_default"

// Level is one step of the override hierarchy.
type Level int

// Levels ordered from least to most specific.
const (
	GlobalDefault Level = iota
	TeamDefault
	TeamLanguage
)

// Levels lists every level in resolution order.
var Levels = []Level{GlobalDefault, TeamDefault, TeamLanguage}

// String returns the level name.
func (l Level) String() string {
	switch l {
	case GlobalDefault:
		return "global-default"
	case TeamDefault:
		return "team-default"
	case TeamLanguage:
		return "team-language"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Dir returns the store directory for the level.
func (l Level) Dir(team, language string) string {
	switch l {
	case TeamDefault:
		return path.Join(team, DefaultDir)
	case TeamLanguage:
		return path.Join(team, language)
	default:
		return DefaultDir
	}
}

// Template and overlay file names.
const (
	ServerFile      = "server.yaml.tmpl"
	ServerHPAFile   = "server_hpa.yaml.tmpl"
	CronJobFile     = "cronjob.yaml.tmpl"
	ConsumerFile    = "consumer.yaml.tmpl"
	MigrationFile   = "migration.yaml.tmpl"
	DockerfileFile  = "dockerfile.tmpl"
	TolerationsFile = "tolerations.yaml"
	AffinityFile    = "affinity.yaml"
)

// Files lists every file name the resolver is asked for.
var Files = []string{
	ServerFile, ServerHPAFile, CronJobFile, ConsumerFile, MigrationFile,
	DockerfileFile, TolerationsFile, AffinityFile,
}
