package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forgebuild/forge/pkg/buildenv"
	"github.com/forgebuild/forge/pkg/config"
	"github.com/forgebuild/forge/pkg/depgraph"
	"github.com/forgebuild/forge/pkg/envmod"
	"github.com/forgebuild/forge/pkg/types"
)

var envCmd = &cobra.Command{
	Use:   "env <package>",
	Short: "Print the synthesized build environment for a package",
	Long: `Synthesizes the build environment a package would see, without
building anything and without touching the current environment.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnv,
}

func init() {
	envCmd.Flags().StringVarP(&manifestPath, "manifest", "m", "forge.yaml", "graph manifest file")
	envCmd.Flags().StringVar(&wrapperDir, "wrapper-dir", "", "compiler wrapper directory")
	rootCmd.AddCommand(envCmd)
}

func runEnv(cmd *cobra.Command, args []string) error {
	settings, err := config.NewManager(cfgFile).Load()
	if err != nil {
		return err
	}
	_, graph, err := depgraph.LoadManifest(manifestPath)
	if err != nil {
		return err
	}
	pkg, ok := graph.Package(args[0])
	if !ok {
		return fmt.Errorf("package %q is not in the manifest", args[0])
	}

	s := &buildenv.Synthesizer{
		Graph:      graph,
		Settings:   settings,
		WrapperDir: wrapperDir,
		Log:        newLogger(),
	}

	env := envmod.New()
	if pkg.Toolchain() != nil {
		if err := s.SetCompilerEnvironmentVariables(pkg, env); err != nil {
			return err
		}
	}
	if err := s.SetBuildEnvironmentVariables(pkg, env); err != nil {
		return err
	}
	deps, err := s.ModificationsFromDependencies(pkg, nil, types.ContextBuild)
	if err != nil {
		return err
	}
	env.Extend(deps)

	final := map[string]string{}
	env.ApplyTo(final)

	names := make([]string, 0, len(final))
	for name := range final {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", name, shellQuote(final[name]))
	}
	return nil
}

func shellQuote(v string) string {
	if v == "" || strings.ContainsAny(v, " \t\n'\"$") {
		return "'" + strings.ReplaceAll(v, "'", `'\''`) + "'"
	}
	return v
}
