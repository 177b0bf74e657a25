package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/forgebuild/forge/pkg/config"
	"github.com/forgebuild/forge/pkg/depgraph"
	"github.com/forgebuild/forge/pkg/isolate"
	"github.com/forgebuild/forge/pkg/process"
	"github.com/forgebuild/forge/pkg/recipe"
	"github.com/forgebuild/forge/pkg/types"
)

var (
	manifestPath string
	actionName   string
	wrapperDir   string
	workDir      string
	dirtyEnv     bool
	fakeSetup    bool
)

var buildCmd = &cobra.Command{
	Use:   "build [package...]",
	Short: "Run a build action for packages of a graph manifest",
	Long: `Runs the named build action for each requested package, each in its
own isolated child process with a freshly synthesized environment.
Without package arguments the manifest's root package is built.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&manifestPath, "manifest", "m", "forge.yaml", "graph manifest file")
	buildCmd.Flags().StringVarP(&actionName, "action", "a", "install", "registered build action to run")
	buildCmd.Flags().StringVar(&wrapperDir, "wrapper-dir", "", "compiler wrapper directory")
	buildCmd.Flags().StringVar(&workDir, "work-dir", "", "working directory for build logs (default: temp)")
	buildCmd.Flags().BoolVar(&dirtyEnv, "dirty", false, "skip environment sanitization, trust the ambient environment")
	buildCmd.Flags().BoolVar(&fakeSetup, "fake", false, "skip environment setup entirely (debugging)")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	settings, err := config.NewManager(cfgFile).Load()
	if err != nil {
		return err
	}
	manifest, graph, err := depgraph.LoadManifest(manifestPath)
	if err != nil {
		return err
	}

	targets := args
	if len(targets) == 0 {
		if manifest.Root == "" {
			return fmt.Errorf("no packages requested and manifest has no root")
		}
		targets = []string{manifest.Root}
	}
	for _, name := range targets {
		if _, ok := graph.Package(name); !ok {
			return fmt.Errorf("package %q is not in the manifest", name)
		}
	}

	if workDir == "" {
		workDir, err = os.MkdirTemp("", "forge-build-")
		if err != nil {
			return err
		}
	}

	log := newLogger()
	mgr, ctx := process.NewManager(cmd.Context(), log)
	defer mgr.Shutdown()

	// The outer scheduler: one isolated child per package, bounded
	// fan-out. The engine itself runs strictly one action per child.
	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(settings.BuildJobs)

	for _, name := range targets {
		name := name
		grp.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			console.Info(fmt.Sprintf("building %s", name))

			runner := &isolate.Runner{Log: log}
			res, err := runner.Run(isolate.Request{
				Package:      name,
				Action:       actionName,
				Context:      types.ContextBuild,
				Dirty:        dirtyEnv,
				Fake:         fakeSetup,
				Settings:     settings,
				ManifestPath: manifestPath,
				WrapperDir:   wrapperDir,
				WorkDir:      workDir,
				BuildLog:     filepath.Join(workDir, name+"-build.log"),
			})
			if err != nil {
				console.Error(fmt.Sprintf("%s failed", name))
				return err
			}
			if res.Outcome == types.OutcomeStopped {
				console.Warn(fmt.Sprintf("%s stopped: %s", name, res.Message))
				return nil
			}
			console.Success(fmt.Sprintf("%s done", name))
			return nil
		})
	}
	return grp.Wait()
}

func init() {
	// The stock install action for autotools-style packages. Projects
	// with their own phases register additional actions before Execute.
	isolate.RegisterAction("install", func(tk *recipe.Toolkit) error {
		if _, err := os.Stat(tk.Configure.Path); err == nil {
			if err := tk.Configure.Run("--prefix=" + tk.Prefix); err != nil {
				return err
			}
		}
		if err := tk.Make.Run(); err != nil {
			return err
		}
		return tk.Make.RunWith(false, "install")
	})
}
