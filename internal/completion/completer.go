// Package completion provides tab completion backed by the persisted
// workspace state. It reads the state file directly and never builds the full
// App; completions must stay fast.
package completion

import (
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spirehq/spire/internal/config"
	"github.com/spirehq/spire/internal/docs"
	"github.com/spirehq/spire/internal/statefile"
)

// StateDirFunc returns the state directory to use at completion time.
type StateDirFunc func(cmd *cobra.Command) string

// DefaultStateDirFunc checks (in order) the --state-dir flag on the root
// command, the SPIRE_STATE_DIR environment variable, and the default config
// directory. Config files are deliberately not loaded here; that latency
// defeats fast completions.
func DefaultStateDirFunc(cmd *cobra.Command) string {
	if root := cmd.Root(); root != nil {
		if flag := root.PersistentFlags().Lookup("state-dir"); flag != nil && flag.Changed {
			return flag.Value.String()
		}
	}
	if v := os.Getenv("SPIRE_STATE_DIR"); v != "" {
		return v
	}
	return config.GlobalConfigDir()
}

// Completer provides completion functions for spire commands.
type Completer struct {
	getStateDir StateDirFunc
}

// NewCompleter creates a Completer. A nil getStateDir falls back to
// DefaultStateDirFunc.
func NewCompleter(getStateDir StateDirFunc) *Completer {
	if getStateDir == nil {
		getStateDir = DefaultStateDirFunc
	}
	return &Completer{getStateDir: getStateDir}
}

// URICompletion completes resource URIs from the persisted workspace state:
// every known root cluster plus the resource URI behind each open document.
func (c *Completer) URICompletion() cobra.CompletionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
		state := c.loadState(cmd)
		if state == nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		seen := make(map[string]struct{})
		var candidates []string
		add := func(u string) {
			if u == "" {
				return
			}
			if _, ok := seen[u]; ok {
				return
			}
			seen[u] = struct{}{}
			candidates = append(candidates, u)
		}

		for rootURI, entry := range state.Workspaces {
			add(string(rootURI))
			for _, d := range entry.Documents {
				add(string(docs.ResourceURI(d)))
			}
		}
		sort.Strings(candidates)

		var completions []cobra.Completion
		for _, u := range candidates {
			if strings.HasPrefix(u, toComplete) {
				completions = append(completions, u)
			}
		}
		return completions, cobra.ShellCompDirectiveNoFileComp
	}
}

func (c *Completer) loadState(cmd *cobra.Command) *statefile.State {
	dir := c.getStateDir(cmd)
	if dir == "" {
		return nil
	}
	store, err := statefile.NewStore(dir)
	if err != nil {
		return nil
	}
	state, err := store.Load()
	if err != nil {
		return nil
	}
	return state
}
