// Package defs loads workflow definition manifests: which assets exist,
// which dags consume them, and which tasks produce them.
//
// Manifests are YAML, validated against an embedded CUE schema before
// anything touches the store. Applying a manifest is idempotent and prunes
// edges a dag no longer declares; the trigger pipeline itself never writes
// dependency edges.
package defs

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/assetline/assetline/internal/model"
	"github.com/assetline/assetline/internal/store"
)

//go:embed schema.cue
var schemaCUE string

// Manifest is a parsed workflow definition file.
type Manifest struct {
	Assets []AssetDef `yaml:"assets" json:"assets"`
	Dags   []DagDef   `yaml:"dags" json:"dags"`
}

// AssetDef registers or refreshes an asset.
type AssetDef struct {
	URI   string         `yaml:"uri" json:"uri"`
	Name  string         `yaml:"name" json:"name,omitempty"`
	Group string         `yaml:"group" json:"group,omitempty"`
	Extra map[string]any `yaml:"extra" json:"extra,omitempty"`
}

// DagDef declares a dag's asset dependencies and task outlets.
type DagDef struct {
	DagID          string    `yaml:"dag_id" json:"dag_id"`
	ScheduleAssets []string  `yaml:"schedule_assets" json:"schedule_assets,omitempty"`
	Tasks          []TaskDef `yaml:"tasks" json:"tasks,omitempty"`
}

// TaskDef declares which assets a task updates.
type TaskDef struct {
	TaskID  string   `yaml:"task_id" json:"task_id"`
	Outlets []string `yaml:"outlets" json:"outlets"`
}

// Load reads, parses, and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data)
}

// Parse decodes manifest YAML and validates it against the schema.
func Parse(data []byte) (*Manifest, error) {
	// Decode to a generic value first so CUE sees the raw shape, not the
	// zero-filled struct.
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, model.ValidationErrorf("manifest", "invalid YAML: %v", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}

	if err := validate(raw); err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, model.ValidationErrorf("manifest", "invalid manifest: %v", err)
	}
	return &m, nil
}

// validate unifies the decoded manifest with the #Manifest schema.
func validate(raw any) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile manifest schema: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Manifest")).Unify(ctx.Encode(raw))
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		var msgs []string
		for _, e := range cueerrors.Errors(err) {
			msgs = append(msgs, e.Error())
		}
		return model.ValidationErrorf("manifest", "schema violation: %v", msgs)
	}
	return nil
}

// Apply registers the manifest's assets and reconciles each dag's edges.
// Assets are created (or refreshed) first so edge resolution never sees a
// dangling URI from the same file.
func Apply(ctx context.Context, st *store.Store, m *Manifest) error {
	for _, a := range m.Assets {
		if _, err := st.CreateAsset(ctx, a.URI, a.Name, a.Group, model.Extra(a.Extra)); err != nil {
			return fmt.Errorf("apply asset %q: %w", a.URI, err)
		}
	}

	for _, dag := range m.Dags {
		var outlets []store.TaskOutlet
		for _, task := range dag.Tasks {
			for _, uri := range task.Outlets {
				outlets = append(outlets, store.TaskOutlet{TaskID: task.TaskID, AssetURI: uri})
			}
		}
		if err := st.ReplaceDagRefs(ctx, dag.DagID, dag.ScheduleAssets, outlets); err != nil {
			return fmt.Errorf("apply dag %q: %w", dag.DagID, err)
		}
	}
	return nil
}
