package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/tinyjvm/tinyjvm/pkg/classloader"
	"github.com/tinyjvm/tinyjvm/pkg/gfunction"
	"github.com/tinyjvm/tinyjvm/pkg/host"
	"github.com/tinyjvm/tinyjvm/pkg/interp"
	"github.com/tinyjvm/tinyjvm/pkg/object"
)

var classpath []string

var rootCmd = &cobra.Command{
	Use:   "tinyjvm <class-or-jar> [args...]",
	Short: "Run a compiled Java class file or executable jar",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMain,
}

func init() {
	rootCmd.Flags().StringSliceVarP(&classpath, "classpath", "c", nil, "directories to search for .class files, in order")
}

func runMain(cmd *cobra.Command, args []string) error {
	target := args[0]
	programArgs := args[1:]

	reg := classloader.NewRegistry()
	mainClassName, jar, err := configureLoaders(reg, target)
	if err != nil {
		return err
	}
	if err := gfunction.Install(reg); err != nil {
		return errors.Wrap(err, "installing runtime classes")
	}

	osHost := host.NewOSHost(os.Stdout, classpath)
	if jar != nil {
		osHost.Resources = append(osHost.Resources, jar)
	}
	it := interp.New(reg, osHost)

	mainClass, err := it.ResolveClass(mainClassName)
	if err != nil {
		return errors.Wrapf(err, "resolving main class %s", mainClassName)
	}
	mainMethod := mainClass.FindMethod("main", "([Ljava/lang/String;)V")
	if mainMethod == nil {
		return errors.Errorf("class %s has no main([Ljava/lang/String;)V method", mainClassName)
	}

	argv, err := it.NewArray("Ljava/lang/String;", len(programArgs))
	if err != nil {
		return errors.Wrap(err, "allocating program argument array")
	}
	for i, a := range programArgs {
		argv.Elems[i] = object.RefValue(it.NewString(a))
	}

	_, err = it.Invoke(mainMethod, object.Value{}, []object.Value{object.RefValue(argv)})
	if err != nil {
		if code, ok := gfunction.ExitCode(err); ok {
			exitCode = code
			return nil
		}
		if je, ok := err.(*interp.JavaException); ok {
			return errors.Errorf("uncaught exception: %s", je.Error())
		}
		return err
	}
	return nil
}

// configureLoaders builds the loader chain for target: a jar gets a
// JarLoader (consulting its manifest for Main-Class), a bare .class path
// or class name gets an FSLoader rooted at --classpath plus the file's
// own directory, matching the teacher's UserClassLoader(dir, bootstrap)
// wiring in cmd/gojvm/main.go, generalized to an ordered loader slice
// instead of a two-loader bootstrap/user split. The returned
// *classloader.JarLoader is non-nil only when target was a jar, so
// runMain can also register it as a host.ResourceLoader for
// getResourceAsBytes against entries bundled in the same jar.
func configureLoaders(reg *classloader.Registry, target string) (string, *classloader.JarLoader, error) {
	if strings.HasSuffix(target, ".jar") {
		jl, err := classloader.OpenJar(target)
		if err != nil {
			return "", nil, err
		}
		reg.Loaders = append(reg.Loaders, jl)
		for _, root := range classpath {
			reg.Loaders = append(reg.Loaders, classloader.NewFSLoader(root))
		}
		if jl.MainClass == "" {
			return "", nil, errors.Errorf("jar %s has no Main-Class manifest entry", target)
		}
		return jl.MainClass, jl, nil
	}

	dir := filepath.Dir(target)
	className := strings.TrimSuffix(filepath.Base(target), ".class")
	reg.Loaders = append(reg.Loaders, classloader.NewFSLoader(dir))
	for _, root := range classpath {
		reg.Loaders = append(reg.Loaders, classloader.NewFSLoader(root))
	}
	return className, nil, nil
}
